package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/transport/payments/dto"
	"github.com/shopspring/decimal"
)

const (
	RouteIntents = "/v1/payment_intents"

	defaultGatewayTimeout = 10 * time.Second

	minorUnitFactor = 100
)

// StripeClient - интентовый (карточный) поток: создаем intent, клиент подтверждает
// его на своей стороне, сервер проверяет статус. Суммы провайдер считает в минорных
// единицах валюты.
type StripeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewStripeClient(baseURL, apiKey string, timeout time.Duration) *StripeClient {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &StripeClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		// Таймаут ограничивает все вызовы к провайдеру: зависший шлюз не должен
		// держать наш обработчик. Таймаут локально трактуется как failed, но списание
		// на стороне провайдера могло пройти - итог доуточняет фоновая сверка.
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *StripeClient) Method() domain.PaymentMethod {
	return domain.MethodStripe
}

// CreatePayment создает payment intent и возвращает его id - наш ключ идемпотентности.
func (c *StripeClient) CreatePayment(
	ctx context.Context,
	amount decimal.Decimal,
	currency, description string,
) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount.Mul(decimal.NewFromInt(minorUnitFactor)).IntPart(), 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("description", description)

	intent, err := c.do(ctx, http.MethodPost, c.baseURL+RouteIntents, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	return intent.ID, nil
}

// VerifyPayment запрашивает статус интента и нормализует его в канонический итог.
func (c *StripeClient) VerifyPayment(ctx context.Context, providerRef string) (domain.PaymentOutcome, error) {
	intent, err := c.do(ctx, http.MethodGet, c.baseURL+RouteIntents+"/"+providerRef, nil)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("verify payment intent %s: %w", providerRef, err)
	}

	switch intent.Status {
	case dto.IntentStatusSucceeded:
		return domain.OutcomeSucceeded, nil
	case dto.IntentStatusCanceled:
		return domain.OutcomeFailed, nil
	default:
		return domain.OutcomePending, nil
	}
}

//nolint:nonamedreturns
func (c *StripeClient) do(ctx context.Context, method, reqURL string, body io.Reader) (intent *dto.PaymentIntent, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, method, reqURL, body)
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("do request: %s", doErr.Error())
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		err = NewStatusCodeError(resp.StatusCode)
		return nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		err = fmt.Errorf("read response: %s", readErr.Error())
		return nil, err
	}

	if jsonErr := json.Unmarshal(raw, &intent); jsonErr != nil {
		err = fmt.Errorf("parse response: %s", jsonErr.Error())
		return nil, err
	}
	return intent, nil
}
