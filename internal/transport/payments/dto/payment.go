package dto

// PaymentIntent - ответ интентового (карточного) провайдера.
type PaymentIntent struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Статусы интента на стороне провайдера.
const (
	IntentStatusRequiresPayment = "requires_payment_method"
	IntentStatusProcessing      = "processing"
	IntentStatusSucceeded       = "succeeded"
	IntentStatusCanceled        = "canceled"
)

// CheckoutOrder - ответ ордерного (редиректного) провайдера.
type CheckoutOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Статусы ордера на стороне провайдера.
const (
	OrderStatusCreated   = "CREATED"
	OrderStatusApproved  = "APPROVED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusVoided    = "VOIDED"
)
