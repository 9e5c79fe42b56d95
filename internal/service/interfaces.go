package service

import (
	"context"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password string, hashedPassword string) bool
}

// PaymentGateway создает платеж на стороне внешнего провайдера и возвращает его ссылку.
// Реализация живет в транспортном слое.
type PaymentGateway interface {
	CreatePayment(
		ctx context.Context,
		method domain.PaymentMethod,
		amount decimal.Decimal,
		currency string,
		description string,
	) (string, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
}

type WalletRepository interface {
	GetOrCreate(ctx context.Context, userID int64, currency string) (*domain.Wallet, error)
	FindByUserID(ctx context.Context, userID int64) (*domain.Wallet, error)
	FindByID(ctx context.Context, id int64) (*domain.Wallet, error)
	Credit(ctx context.Context, walletID int64, amount decimal.Decimal) (*domain.Wallet, error)
	Debit(ctx context.Context, walletID int64, amount decimal.Decimal) (*domain.Wallet, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, args repoargs.TransactionCreate) (*domain.Transaction, error)
	FindByID(ctx context.Context, id int64) (*domain.Transaction, error)
	FindByProviderRef(ctx context.Context, providerRef string) (*domain.Transaction, error)
	UpdatePendingStatus(ctx context.Context, id int64, status domain.TransactionStatus) (*domain.Transaction, error)
	GetHistory(ctx context.Context, walletID int64, filter repoargs.TransactionFilter) ([]domain.Transaction, error)
	GetPendingByMethods(ctx context.Context, methods []domain.PaymentMethod, limit uint) ([]domain.Transaction, error)
}

type PurchaseRepository interface {
	Create(ctx context.Context, args repoargs.PurchaseCreate) (*domain.Purchase, error)
	FindByID(ctx context.Context, id int64) (*domain.Purchase, error)
	FindCompleted(ctx context.Context, userID, courseID int64, purchaseType domain.PurchaseType) (*domain.Purchase, error)
	FindGrantedForUpdate(ctx context.Context, userID, courseID int64) (*domain.Purchase, error)
	FindByProviderRef(ctx context.Context, providerRef string) (*domain.Purchase, error)
	CompletePending(ctx context.Context, id int64, files []domain.PurchasedFile) (*domain.Purchase, error)
	MarkFailed(ctx context.Context, id int64) error
	Revoke(ctx context.Context, id int64) (*domain.Purchase, error)
	UpdateFiles(ctx context.Context, id int64, files []domain.PurchasedFile) error
	GetByUserID(ctx context.Context, userID int64) ([]domain.Purchase, error)
}

type PayoutRepository interface {
	Create(ctx context.Context, args repoargs.PayoutCreate) (*domain.PayoutRequest, error)
	FindByID(ctx context.Context, id int64) (*domain.PayoutRequest, error)
	FindForUpdate(ctx context.Context, id int64) (*domain.PayoutRequest, error)
	Resolve(ctx context.Context, id int64, status domain.PayoutStatus, reference, notes string) (*domain.PayoutRequest, error)
	MarkPaid(ctx context.Context, id int64, reference string) (*domain.PayoutRequest, error)
	GetByUserID(ctx context.Context, userID int64) ([]domain.PayoutRequest, error)
	GetByStatus(ctx context.Context, status domain.PayoutStatus) ([]domain.PayoutRequest, error)
}

type CourseRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Course, error)
	FindManyByIDs(ctx context.Context, ids []int64) ([]domain.Course, error)
}
