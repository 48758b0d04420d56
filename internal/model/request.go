package model

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus enum constants
const (
	RequestNew       = "new"
	RequestInReview  = "in_review"
	RequestConverted = "converted"
	RequestDeclined  = "declined"
)

// Request is an incoming lead from the public contact form. Converting a
// request creates a draft estimate carrying the client snapshot.
type Request struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientName  string     `gorm:"type:varchar(255);not null" json:"client_name"`
	ClientPhone string     `gorm:"type:varchar(30);not null" json:"client_phone"`
	ClientEmail string     `gorm:"type:varchar(255)" json:"client_email"`
	Address     string     `gorm:"type:text" json:"address"`
	Message     string     `gorm:"type:text" json:"message"`
	Status      string     `gorm:"type:varchar(20);not null;default:'new';index" json:"status"`
	EstimateID  *uuid.UUID `gorm:"type:uuid" json:"estimate_id"` // set when converted
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
