package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification type constants
const (
	NotifyStatusChange     = "status_change"
	NotifyPaymentConfirmed = "payment_confirmed"
	NotifyNewRequest       = "new_request"
)

// Notification is a best-effort message to an operator (the bell in the UI).
// Delivery is fire-and-forget; callers never await it.
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string    `gorm:"type:varchar(30);not null" json:"type"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	Link      string    `gorm:"type:varchar(255)" json:"link"`
	Read      bool      `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
