package repoargs

import (
	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/shopspring/decimal"
)

type TransactionCreate struct {
	WalletID        int64
	Type            domain.TransactionType
	Amount          decimal.Decimal
	Currency        string
	Description     string
	Status          domain.TransactionStatus
	Method          domain.PaymentMethod
	ProviderRef     string
	RelatedCourseID int64
	RelatedUserID   int64
}

// TransactionFilter описывает страницу истории транзакций. Пустой Type означает все типы.
type TransactionFilter struct {
	Type  domain.TransactionType
	Page  uint
	Limit uint
}
