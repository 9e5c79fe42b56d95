package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/transport/payments/dto"
	"github.com/shopspring/decimal"
)

const (
	RouteOrders       = "/v2/checkout/orders"
	RouteOrderCapture = "/v2/checkout/orders/%s/capture"
)

// PayPalClient - ордерный (редиректный) поток: создаем order, юзер одобряет его
// на странице провайдера, сервер делает capture.
type PayPalClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func NewPayPalClient(baseURL, clientID, clientSecret string, timeout time.Duration) *PayPalClient {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &PayPalClient{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (c *PayPalClient) Method() domain.PaymentMethod {
	return domain.MethodPayPal
}

// CreatePayment создает order на стороне провайдера и возвращает его id.
func (c *PayPalClient) CreatePayment(
	ctx context.Context,
	amount decimal.Decimal,
	currency, description string,
) (string, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"description": description,
				"amount": map[string]string{
					"currency_code": currency,
					"value":         amount.StringFixed(2), //nolint:mnd
				},
			},
		},
	}
	raw, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return "", fmt.Errorf("create order: %s", marshalErr.Error())
	}

	order, err := c.do(ctx, http.MethodPost, c.baseURL+RouteOrders, raw)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	return order.ID, nil
}

// VerifyPayment запрашивает статус ордера. Одобренный юзером ордер добивается
// capture-ом до терминального статуса; только COMPLETED считается успехом.
func (c *PayPalClient) VerifyPayment(ctx context.Context, providerRef string) (domain.PaymentOutcome, error) {
	order, err := c.do(ctx, http.MethodGet, c.baseURL+RouteOrders+"/"+providerRef, nil)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("verify order %s: %w", providerRef, err)
	}

	if order.Status == dto.OrderStatusApproved {
		captured, captureErr := c.do(ctx, http.MethodPost, c.baseURL+fmt.Sprintf(RouteOrderCapture, providerRef), nil)
		if captureErr != nil {
			return domain.OutcomeFailed, fmt.Errorf("capture order %s: %w", providerRef, captureErr)
		}
		order = captured
	}

	switch order.Status {
	case dto.OrderStatusCompleted:
		return domain.OutcomeSucceeded, nil
	case dto.OrderStatusVoided:
		return domain.OutcomeFailed, nil
	default:
		return domain.OutcomePending, nil
	}
}

//nolint:nonamedreturns
func (c *PayPalClient) do(ctx context.Context, method, reqURL string, body []byte) (order *dto.CheckoutOrder, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, reqErr := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("do request: %s", doErr.Error())
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		err = NewStatusCodeError(resp.StatusCode)
		return nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		err = fmt.Errorf("read response: %s", readErr.Error())
		return nil, err
	}

	if jsonErr := json.Unmarshal(raw, &order); jsonErr != nil {
		err = fmt.Errorf("parse response: %s", jsonErr.Error())
		return nil, err
	}
	return order, nil
}
