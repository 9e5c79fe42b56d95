package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/avkozlov/edumarket/internal/service"
	"github.com/avkozlov/edumarket/internal/transport/payments"
)

// UserServicer интерфейс исключительно для моков.
type UserServicer interface {
	Register(ctx context.Context, args service.RegisterUserArgs) (*domain.User, string, error)
	Login(ctx context.Context, args service.LoginUserArgs) (*domain.User, string, error)
}

type WalletServicer interface {
	GetOrCreate(ctx context.Context, userID int64) (*domain.Wallet, error)
	History(ctx context.Context, userID int64, filter repoargs.TransactionFilter) ([]domain.Transaction, error)
}

type TransactionServicer interface {
	Process(ctx context.Context, args service.ProcessArgs) (*domain.Transaction, error)
	Cancel(ctx context.Context, userID, transactionID int64) (*domain.Transaction, error)
}

// PaymentInitiator - фасад внешних шлюзов: создание платежа и клиентское
// подтверждение его итога.
type PaymentInitiator interface {
	CreatePayment(
		ctx context.Context,
		method domain.PaymentMethod,
		amount decimal.Decimal,
		currency, description string,
	) (string, error)
	Confirm(ctx context.Context, method domain.PaymentMethod, providerRef string) error
}

type PurchaseServicer interface {
	PurchaseCourse(ctx context.Context, args service.PurchaseCourseArgs) (*domain.Purchase, error)
	PurchaseCart(ctx context.Context, userID int64, courseIDs []int64) (*service.CartResult, error)
	Download(ctx context.Context, userID, courseID, fileID int64) (*domain.PurchasedFile, error)
	Refund(ctx context.Context, userID, purchaseID int64) (*domain.Purchase, error)
	GetByUserID(ctx context.Context, userID int64) ([]domain.Purchase, error)
}

type PayoutServicer interface {
	Create(ctx context.Context, args service.CreatePayoutArgs) (*domain.PayoutRequest, error)
	Approve(ctx context.Context, requestID int64, notes string) (*domain.PayoutRequest, error)
	Reject(ctx context.Context, requestID int64, notes string) (*domain.PayoutRequest, error)
	ConfirmTransfer(ctx context.Context, requestID int64, reference string) (*domain.PayoutRequest, error)
	GetByUserID(ctx context.Context, userID int64) ([]domain.PayoutRequest, error)
	GetPending(ctx context.Context) ([]domain.PayoutRequest, error)
}

// WebhookSink - проверка подписи и применение события вебхука.
type WebhookSink interface {
	Verify(method domain.PaymentMethod, body []byte, signature string) error
	ParseEvent(method domain.PaymentMethod, body []byte) (*payments.WebhookEvent, error)
}

// OutcomeReporter применяет канонический итог платежа к леджеру.
type OutcomeReporter interface {
	ReportOutcome(ctx context.Context, providerRef string, outcome domain.PaymentOutcome) error
}
