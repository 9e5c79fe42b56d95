package repoargs

import (
	"github.com/shopspring/decimal"
)

type PayoutCreate struct {
	UserID      int64
	Amount      decimal.Decimal
	Currency    string
	Method      string
	Destination string
}
