package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/avkozlov/edumarket/internal/domain"
)

// WebhookVerifier проверяет подпись вебхука и разбирает событие провайдера
// в канонический итог. Секрет у каждого провайдера свой.
type WebhookVerifier struct {
	secrets map[domain.PaymentMethod][]byte
}

func NewWebhookVerifier(secrets map[domain.PaymentMethod]string) *WebhookVerifier {
	byMethod := make(map[domain.PaymentMethod][]byte, len(secrets))
	for method, secret := range secrets {
		byMethod[method] = []byte(secret)
	}
	return &WebhookVerifier{secrets: byMethod}
}

// Verify считает HMAC-SHA256 по сырому телу запроса и сравнивает с подписью
// из заголовка за константное время.
func (v *WebhookVerifier) Verify(method domain.PaymentMethod, body []byte, signature string) error {
	secret, ok := v.secrets[method]
	if !ok {
		return NewUnknownProviderError(method)
	}

	expected, err := hex.DecodeString(signature)
	if err != nil {
		return domain.ErrSignatureVerification
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return domain.ErrSignatureVerification
	}
	return nil
}

// Sign - обратная операция к Verify, нужна тестам и локальному стенду.
func (v *WebhookVerifier) Sign(method domain.PaymentMethod, body []byte) (string, error) {
	secret, ok := v.secrets[method]
	if !ok {
		return "", NewUnknownProviderError(method)
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

type paypalEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID string `json:"id"`
	} `json:"resource"`
}

// WebhookEvent - распарсенное событие: чей платеж и чем он закончился.
type WebhookEvent struct {
	ProviderRef string
	Outcome     domain.PaymentOutcome
}

// ParseEvent разбирает тело вебхука конкретного провайдера. События, не
// относящиеся к жизненному циклу платежа, отдаются как pending - обработчик
// их молча подтверждает.
func (v *WebhookVerifier) ParseEvent(method domain.PaymentMethod, body []byte) (*WebhookEvent, error) {
	switch method {
	case domain.MethodStripe:
		var ev stripeEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, fmt.Errorf("parse stripe event: %s", err.Error())
		}
		return &WebhookEvent{ProviderRef: ev.Data.Object.ID, Outcome: stripeOutcome(ev.Type)}, nil
	case domain.MethodPayPal:
		var ev paypalEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, fmt.Errorf("parse paypal event: %s", err.Error())
		}
		return &WebhookEvent{ProviderRef: ev.Resource.ID, Outcome: paypalOutcome(ev.EventType)}, nil
	case domain.MethodWallet:
		return nil, NewUnknownProviderError(method)
	default:
		return nil, NewUnknownProviderError(method)
	}
}

func stripeOutcome(eventType string) domain.PaymentOutcome {
	switch eventType {
	case "payment_intent.succeeded":
		return domain.OutcomeSucceeded
	case "payment_intent.payment_failed", "payment_intent.canceled":
		return domain.OutcomeFailed
	default:
		return domain.OutcomePending
	}
}

func paypalOutcome(eventType string) domain.PaymentOutcome {
	switch eventType {
	case "CHECKOUT.ORDER.COMPLETED", "PAYMENT.CAPTURE.COMPLETED":
		return domain.OutcomeSucceeded
	case "CHECKOUT.ORDER.VOIDED", "PAYMENT.CAPTURE.DENIED":
		return domain.OutcomeFailed
	default:
		return domain.OutcomePending
	}
}
