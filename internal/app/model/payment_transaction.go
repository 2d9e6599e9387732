package model

import "time"

type TransactionStatus string // settlement attempt status

const (
	TransactionInitiated TransactionStatus = "initiated"
	TransactionSuccess   TransactionStatus = "success"
	TransactionFailed    TransactionStatus = "failed"
	TransactionVerified  TransactionStatus = "verified"
)

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionSuccess || s == TransactionFailed || s == TransactionVerified
}

// PaymentTransaction is one settlement attempt. Amounts are what was sent to the
// gateway; ActualFee is the application's real fee.
type PaymentTransaction struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	ApplicationID uint   `gorm:"not null;index" json:"application_id"`
	AppRefNo      string `gorm:"type:varchar(40);uniqueIndex;not null" json:"app_ref_no"`
	DeptRefNo     string `gorm:"type:varchar(40);not null" json:"dept_ref_no"`
	DDOCode       string `gorm:"type:varchar(30);not null" json:"ddo_code"`
	DDOFallback   bool   `gorm:"default:false" json:"ddo_fallback"`
	TenderBy      string `gorm:"type:varchar(120)" json:"tender_by"`

	TotalAmount int64  `gorm:"not null" json:"total_amount"`
	Head1       string `gorm:"type:varchar(30);not null" json:"head1"`
	Amount1     int64  `gorm:"not null" json:"amount1"`
	Head2       string `gorm:"type:varchar(30)" json:"head2,omitempty"`
	Amount2     int64  `json:"amount2"`
	ActualFee   int64  `gorm:"not null" json:"actual_fee"`
	TestMode    bool   `gorm:"default:false" json:"test_mode"`

	RequestChecksum  string `gorm:"type:varchar(64)" json:"request_checksum"`
	ResponseChecksum string `gorm:"type:varchar(64)" json:"response_checksum,omitempty"`
	PortalBaseURL    string `gorm:"type:varchar(255)" json:"-"`

	TransactionStatus TransactionStatus `gorm:"type:varchar(20);not null;default:'initiated';index" json:"transaction_status"`
	StatusCode        string            `gorm:"type:varchar(10)" json:"status_code,omitempty"`
	StatusMessage     string            `gorm:"type:varchar(255)" json:"status_message,omitempty"`
	GRN               string            `gorm:"type:varchar(60);index" json:"grn,omitempty"` // gateway EchTxnId
	BankCIN           string            `gorm:"type:varchar(60)" json:"bank_cin,omitempty"`
	BankName          string            `gorm:"type:varchar(120)" json:"bank_name,omitempty"`
	PaymentDate       string            `gorm:"type:varchar(40)" json:"payment_date,omitempty"`
	ResponseRaw       string            `gorm:"type:text" json:"-"`
	RespondedAt       *time.Time        `json:"responded_at,omitempty"`

	IsDoubleVerified   bool       `gorm:"default:false" json:"is_double_verified"`
	VerifiedStatusCode string     `gorm:"type:varchar(10)" json:"verified_status_code,omitempty"`
	VerificationRaw    string     `gorm:"type:text" json:"-"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`

	Note      string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
