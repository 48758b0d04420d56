package model

import (
	"time"

	"github.com/google/uuid"
)

// History action constants
const (
	ActionStatusChange        = "status_change"
	ActionPrepaymentConfirmed = "prepayment_confirmed"
	ActionPaymentRefunded     = "payment_refunded"
	ActionLineItemsChanged    = "line_items_changed"
	ActionEstimateDuplicated  = "estimate_duplicated"
	ActionRequestConverted    = "request_converted"
)

// EstimateHistory is the append-only audit trail of an estimate: one row per
// mutating event with old/new snapshots. Rows are never updated or deleted;
// this is the forensic source of truth if derived totals are ever suspected
// of drift.
type EstimateHistory struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EstimateID uuid.UUID  `gorm:"type:uuid;not null;index" json:"estimate_id"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	ChangedBy  *uuid.UUID `gorm:"type:uuid;index" json:"changed_by"` // nullable for system actions
	Actor      *User      `gorm:"foreignKey:ChangedBy" json:"actor,omitempty"`
	OldValues  string     `gorm:"type:jsonb" json:"old_values"`
	NewValues  string     `gorm:"type:jsonb" json:"new_values"`
	Comment    string     `gorm:"type:text" json:"comment"`
	ChangedAt  time.Time  `gorm:"index" json:"changed_at"`
}
