package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus enum constants. The only legal transitions are
// pending → confirmed and confirmed → refunded; refunded is terminal.
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentRefunded  = "refunded"
)

// Payment is one money movement recorded against an estimate. Confirmation is
// idempotent; a refund reverses the full original amount via a storno finance
// entry rather than deleting history.
type Payment struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EstimateID uuid.UUID `gorm:"type:uuid;not null;index" json:"estimate_id"`

	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Currency   string          `gorm:"type:varchar(10);not null;default:'RUB_PMR'" json:"currency"`
	Method     string          `gorm:"type:varchar(30)" json:"method"`
	Recipient  string          `gorm:"type:varchar(255)" json:"recipient"`
	Reference  string          `gorm:"type:varchar(255)" json:"reference"`
	ReceiptURL string          `gorm:"type:text" json:"receipt_url"`

	Status     string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Verified   bool       `gorm:"not null;default:false" json:"verified"`
	VerifiedBy *uuid.UUID `gorm:"type:uuid" json:"verified_by"`

	Fees        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"fees"`
	GrossAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"gross_amount"`
	NetAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"net_amount"`

	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
