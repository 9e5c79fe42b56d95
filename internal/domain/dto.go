package domain

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionPurchase   TransactionType = "purchase"
	TransactionRefund     TransactionType = "refund"
	TransactionCommission TransactionType = "commission"
)

// IsCredit сообщает, увеличивает ли завершенная транзакция данного типа баланс кошелька.
func (t TransactionType) IsCredit() bool {
	return t == TransactionDeposit || t == TransactionRefund
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// PaymentMethod - закрытое множество источников оплаты. Два внешних шлюза и внутренний кошелек.
type PaymentMethod string

const (
	MethodStripe PaymentMethod = "stripe"
	MethodPayPal PaymentMethod = "paypal"
	MethodWallet PaymentMethod = "wallet"
)

func (m PaymentMethod) IsGateway() bool {
	return m == MethodStripe || m == MethodPayPal
}

type PurchaseType string

const (
	PurchaseFullCourse PurchaseType = "full_course"
	PurchasePDFOnly    PurchaseType = "pdf_only"
	PurchaseVideoOnly  PurchaseType = "video_only"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
	PurchaseStatusRefunded  PurchaseStatus = "refunded"
)

type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "pending"
	PayoutStatusApproved PayoutStatus = "approved"
	PayoutStatusRejected PayoutStatus = "rejected"
	PayoutStatusPaid     PayoutStatus = "paid"
)

// PaymentOutcome - канонический итог платежа после нормализации ответа провайдера.
type PaymentOutcome string

const (
	OutcomeSucceeded PaymentOutcome = "succeeded"
	OutcomeFailed    PaymentOutcome = "failed"
	OutcomePending   PaymentOutcome = "pending"
)
