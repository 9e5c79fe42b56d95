package domain

import (
	"github.com/shopspring/decimal"

	"time"
)

type User struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Username  string
	Password  string
	Role      UserRole
}

type Wallet struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    int64
	Balance   decimal.Decimal
	Currency  string
	IsActive  bool
}

type Transaction struct {
	ID              int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	WalletID        int64
	Type            TransactionType
	Amount          decimal.Decimal
	Currency        string
	Description     string
	Status          TransactionStatus
	Method          PaymentMethod
	ProviderRef     string
	RelatedCourseID int64
	RelatedUserID   int64
	ProcessedAt     *time.Time
}

// PurchasedFile - снимок файла курса на момент покупки. Хранится внутри покупки,
// чтобы изменение файлов курса не влияло на уже купленный контент.
type PurchasedFile struct {
	FileID         int64      `json:"file_id"`
	Filename       string     `json:"filename"`
	FileType       string     `json:"file_type"`
	FileURL        string     `json:"file_url"`
	DownloadCount  int64      `json:"download_count"`
	LastDownloaded *time.Time `json:"last_downloaded,omitempty"`
}

type Purchase struct {
	ID              int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	UserID          int64
	CourseID        int64
	Type            PurchaseType
	Amount          decimal.Decimal
	Currency        string
	Method          PaymentMethod
	Status          PurchaseStatus
	ProviderRef     string
	AccessGranted   bool
	AccessExpiresAt *time.Time
	Files           []PurchasedFile
	PurchasedAt     *time.Time
	RefundedAt      *time.Time
}

type PayoutRequest struct {
	ID          int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UserID      int64
	Amount      decimal.Decimal
	Currency    string
	Method      string
	Destination string
	Status      PayoutStatus
	Reference   string
	Notes       string
	ProcessedAt *time.Time
}

type CourseFile struct {
	ID       int64
	CourseID int64
	Name     string
	FileType string
	URL      string
}

type Course struct {
	ID              int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	TeacherID       int64
	Title           string
	Price           decimal.Decimal
	Currency        string
	ForSale         bool
	SessionStartsAt *time.Time
	Files           []CourseFile
}
