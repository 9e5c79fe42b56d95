package payments

import (
	"errors"
	"fmt"

	"github.com/avkozlov/edumarket/internal/domain"
)

var ErrNoPending = errors.New("no pending transactions")

type UnknownProviderError struct {
	Method domain.PaymentMethod
}

func NewUnknownProviderError(method domain.PaymentMethod) *UnknownProviderError {
	return &UnknownProviderError{Method: method}
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown payment provider %q", e.Method)
}

type StatusCodeError struct {
	Code int
}

func NewStatusCodeError(code int) *StatusCodeError {
	return &StatusCodeError{Code: code}
}

func (e *StatusCodeError) Error() string {
	return fmt.Sprintf("Unexpected status code %d", e.Code)
}
