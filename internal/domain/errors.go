package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrPasswordMissMatch = errors.New("password mismatch")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnknown           = errors.New("unknown error")

	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrWalletInactive        = errors.New("wallet is not active")
	ErrCourseNotForSale      = errors.New("course is not for sale")
	ErrAccessExpired         = errors.New("access expired")
	ErrRefundWindowExpired   = errors.New("refund window expired")
	ErrPurchaseNotFound      = errors.New("purchase not found")
	ErrPayoutNotFound        = errors.New("payout request not found")
	ErrPayoutNotPending      = errors.New("payout request is not pending")
	ErrTransactionNotPending = errors.New("transaction is not pending")

	// ErrPayoutInsufficientFunds - баланс учителя проверяется в момент одобрения
	// заявки, а не в момент её создания; на момент одобрения денег может не хватить.
	ErrPayoutInsufficientFunds = errors.New("insufficient funds at approval time")

	ErrSignatureVerification = errors.New("signature verification failed")
)

// AlreadyPurchasedError возвращается при попытке повторной покупки. Содержит
// уже существующую завершенную покупку, чтобы вызывающий мог её показать.
type AlreadyPurchasedError struct {
	Purchase *Purchase
}

func NewAlreadyPurchasedError(purchase *Purchase) error {
	return &AlreadyPurchasedError{Purchase: purchase}
}

func (e *AlreadyPurchasedError) Error() string {
	return fmt.Sprintf(
		"course %d already purchased by user %d as %s",
		e.Purchase.CourseID,
		e.Purchase.UserID,
		e.Purchase.Type,
	)
}
