package pgrepo

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// safeConvertUintToInt32 безопасно конвертирует uint в int32. В случае выхода значения за рамки диапазона
// выбрасывает ошибку.
func safeConvertUintToInt32(val uint) (int32, error) {
	if val > uint(math.MaxInt32) {
		return 0, fmt.Errorf("value is out of range: %d", val)
	}
	return int32(val), nil
}

// parseDecimal парсит денежную колонку, выбранную как text. Numeric колонки везде
// кастуются в text в SQL, чтобы не терять точность на float сканировании.
func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %s", raw, err.Error())
	}
	return d, nil
}
