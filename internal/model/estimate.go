package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstimateStatus enum constants
const (
	StatusDraft              = "draft"
	StatusSent               = "sent"
	StatusViewed             = "viewed"
	StatusApproved           = "approved"
	StatusPendingPrepayment  = "pending_prepayment"
	StatusPrepaymentReceived = "prepayment_received"
	StatusInProgress         = "in_progress"
	StatusCompleted          = "completed"
	StatusClosed             = "closed"
	StatusRejected           = "rejected"
	StatusConverted          = "converted"
)

// PaymentMethod enum constants
const (
	MethodCash         = "cash"
	MethodBankTransfer = "bank_transfer"
	MethodCard         = "card"
)

// Estimate is a priced quote document for a client, the root aggregate of the
// estimator. Monetary totals are derived from line items and commercial terms
// and are always recomputed, never hand-edited.
type Estimate struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EstimateNumber string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"estimate_number"`
	Title          string    `gorm:"type:varchar(255)" json:"title"`
	Version        int       `gorm:"not null;default:1" json:"version"`

	// Origin links (nullable: a standalone estimate has neither)
	RequestID *uuid.UUID `gorm:"type:uuid;index" json:"request_id"`
	ProjectID *uuid.UUID `gorm:"type:uuid;index" json:"project_id"`

	// Client snapshot, copied at creation time and independently editable
	ClientName    string `gorm:"type:varchar(255);not null" json:"client_name"`
	ClientPhone   string `gorm:"type:varchar(30)" json:"client_phone"`
	ClientEmail   string `gorm:"type:varchar(255)" json:"client_email"`
	ClientAddress string `gorm:"type:text" json:"client_address"`
	ClientComment string `gorm:"type:text" json:"client_comment"`

	// Commercial terms
	Currency             string          `gorm:"type:varchar(10);not null;default:'RUB_PMR'" json:"currency"`
	GlobalDiscountPct    decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"global_discount_pct"`
	GlobalDiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"global_discount_amount"`
	GlobalTaxPct         decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"global_tax_pct"`
	ExtraFees            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"extra_fees"`
	ExtraFeesDescription string          `gorm:"type:text" json:"extra_fees_description"`
	DepositPct           decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"deposit_pct"`
	DepositAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"deposit_amount"`

	// Payment terms. PaymentRecipient must identify a natural person receiving
	// the money, never the creator acting as field technician.
	PaymentMethod         string     `gorm:"type:varchar(30)" json:"payment_method"`
	PaymentRecipient      string     `gorm:"type:varchar(255)" json:"payment_recipient"`
	PrepaymentConfirmed   bool       `gorm:"not null;default:false" json:"prepayment_confirmed"`
	PrepaymentConfirmedAt *time.Time `json:"prepayment_confirmed_at"`
	PrepaymentConfirmedBy *uuid.UUID `gorm:"type:uuid" json:"prepayment_confirmed_by"`

	// Derived totals, recomputed from line items + terms on every mutation
	Subtotal   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"subtotal"`
	TaxAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	Total      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total"`
	DepositDue decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"deposit_due"`
	BalanceDue decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"balance_due"`
	PaidAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"paid_amount"`

	// Lifecycle
	Status      string     `gorm:"type:varchar(30);not null;default:'draft';index" json:"status"`
	Locked      bool       `gorm:"not null;default:false" json:"locked"`
	ValidUntil  *time.Time `gorm:"type:date" json:"valid_until"`
	SentAt      *time.Time `json:"sent_at"`
	ViewedAt    *time.Time `json:"viewed_at"`
	ApprovedAt  *time.Time `json:"approved_at"`
	PublicToken string     `gorm:"type:varchar(64);uniqueIndex" json:"public_token"`

	Notes     string     `gorm:"type:text" json:"notes"`
	CreatedBy *uuid.UUID `gorm:"type:uuid;index" json:"created_by"`
	Creator   *User      `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`

	LineItems []LineItem `gorm:"foreignKey:EstimateID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
