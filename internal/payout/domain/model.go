package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	bankdomain "github.com/remitra/remitra/internal/bank/domain"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ValidStatus reports whether s names a payout status at all.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

const (
	MinPriority       = 1
	MaxPriority       = 5
	DefaultPriority   = 3
	DefaultMaxRetries = 3
)

// PayoutRequest is an outbound transfer from merchant funds to a named
// beneficiary. Priority and amount are immutable after creation; status
// and the retry fields are mutated only through conditional updates.
type PayoutRequest struct {
	ID              snowflake.ID      `json:"id" gorm:"primaryKey"`
	MerchantID      snowflake.ID      `json:"merchant_id" gorm:"not null;index"`
	Amount          int64             `json:"amount" gorm:"not null"`
	Currency        string            `json:"currency" gorm:"type:text;not null"`
	Method          bankdomain.Method `json:"method" gorm:"type:text;not null"`
	BeneficiaryName string            `json:"beneficiary_name" gorm:"type:text;not null"`
	AccountNumber   string            `json:"account_number,omitempty" gorm:"type:text"`
	IFSCCode        string            `json:"ifsc_code,omitempty" gorm:"column:ifsc_code;type:text"`
	UPIID           string            `json:"upi_id,omitempty" gorm:"column:upi_id;type:text"`
	Status          Status            `json:"status" gorm:"type:text;not null;index"`
	Priority        int               `json:"priority" gorm:"not null"`
	RetryCount      int               `json:"retry_count" gorm:"not null"`
	MaxRetries      int               `json:"max_retries" gorm:"not null"`
	NextRetryAt     *time.Time        `json:"next_retry_at,omitempty"`
	ProcessingFee   int64             `json:"processing_fee" gorm:"not null"`
	GSTAmount       int64             `json:"gst_amount" gorm:"column:gst_amount;not null"`
	NetAmount       int64             `json:"net_amount" gorm:"not null"`
	BankReferenceID string            `json:"bank_reference_id,omitempty" gorm:"type:text"`
	UTRNumber       string            `json:"utr_number,omitempty" gorm:"column:utr_number;type:text"`
	FailureReason   string            `json:"failure_reason,omitempty" gorm:"type:text"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"not null"`
}

func (PayoutRequest) TableName() string { return "payout_requests" }

// DestinationTail is the non-sensitive last four digits of the
// destination, safe to keep outside encrypted envelopes.
func (p PayoutRequest) DestinationTail() string {
	dest := p.AccountNumber
	if p.Method == bankdomain.MethodUPI {
		dest = p.UPIID
	}
	if len(dest) <= 4 {
		return dest
	}
	return dest[len(dest)-4:]
}

type CreatePayoutRequest struct {
	MerchantID      string            `json:"merchant_id" binding:"required"`
	Amount          int64             `json:"amount" binding:"required,gt=0"`
	Currency        string            `json:"currency"`
	Method          bankdomain.Method `json:"method" binding:"required,oneof=bank_transfer upi"`
	BeneficiaryName string            `json:"beneficiary_name" binding:"required"`
	AccountNumber   string            `json:"account_number"`
	IFSCCode        string            `json:"ifsc_code"`
	UPIID           string            `json:"upi_id"`
	Priority        int               `json:"priority" binding:"omitempty,gte=1,lte=5"`
	MaxRetries      int               `json:"max_retries" binding:"omitempty,gte=0,lte=10"`
}

type ListPayoutRequest struct {
	MerchantID string            `form:"merchant_id"`
	Page       int               `form:"page,default=1"`
	Limit      int               `form:"limit,default=20"`
	Status     Status            `form:"status"`
	Method     bankdomain.Method `form:"method"`
}

type ListPayoutResponse struct {
	Payouts []PayoutRequest `json:"payouts"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// BankStatusUpdate is the decrypted inbound partner webhook payload.
type BankStatusUpdate struct {
	PayoutID        string    `json:"payout_id"`
	Status          Status    `json:"status"`
	UTRNumber       string    `json:"utr_number,omitempty"`
	BankReferenceID string    `json:"bank_reference_id,omitempty"`
	FailureReason   string    `json:"failure_reason,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
