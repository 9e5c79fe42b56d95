package repoargs

import (
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/shopspring/decimal"
)

type PurchaseCreate struct {
	UserID          int64
	CourseID        int64
	Type            domain.PurchaseType
	Amount          decimal.Decimal
	Currency        string
	Method          domain.PaymentMethod
	Status          domain.PurchaseStatus
	ProviderRef     string
	AccessExpiresAt *time.Time
	Files           []domain.PurchasedFile
}
