package payments

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/shopspring/decimal"
)

// Provider - один внешний платежный провайдер. Ровно две реализации: интентовый
// (карточный) и ордерный (редиректный) шлюзы.
type Provider interface {
	Method() domain.PaymentMethod
	CreatePayment(ctx context.Context, amount decimal.Decimal, currency, description string) (string, error)
	VerifyPayment(ctx context.Context, providerRef string) (domain.PaymentOutcome, error)
}

type TransactionProcessor interface {
	ProcessProviderOutcome(
		ctx context.Context,
		providerRef string,
		outcome domain.PaymentOutcome,
	) (*domain.Transaction, error)
	PendingGateway(ctx context.Context, limit uint) ([]domain.Transaction, error)
}

type PurchaseFinalizer interface {
	FinalizePaid(ctx context.Context, providerRef string) (*domain.Purchase, error)
	FailByProviderRef(ctx context.Context, providerRef string) error
}
