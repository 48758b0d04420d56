package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinanceEntryType enum constants
const (
	EntryIncome  = "income"
	EntryExpense = "expense"
)

// FinanceEntrySource enum constants
const (
	SourceEstimatePayment = "estimate_payment"
	SourceRefund          = "refund"
	SourceManual          = "manual"
)

// FinanceEntry is an immutable ledger line used for business-wide reporting
// independent of any single estimate. Exactly one income entry exists per
// confirmed payment and exactly one expense (storno) entry per refund;
// existence checks keep retries from duplicating rows.
type FinanceEntry struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type string    `gorm:"type:varchar(10);not null;index" json:"type"`

	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Currency    string          `gorm:"type:varchar(10);not null;default:'RUB_PMR'" json:"currency"`
	Source      string          `gorm:"type:varchar(30);not null;index" json:"source"`
	Description string          `gorm:"type:text" json:"description"`

	EstimateID *uuid.UUID `gorm:"type:uuid;index" json:"estimate_id"`
	PaymentID  *uuid.UUID `gorm:"type:uuid;index" json:"payment_id"`
	Reason     string     `gorm:"type:text" json:"reason"`

	Fees        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"fees"`
	GrossAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"gross_amount"`
	NetAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"net_amount"`

	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
