// Package rx holds the prescription records the token-gated resource API
// serves.
package rx

import (
	"time"
)

// Status is the closed set of states a prescription moves through.
type Status string

const (
	StatusUnchecked Status = "unchecked"
	StatusApproved  Status = "approved"
	StatusInRoute   Status = "in_route"
	StatusDelivered Status = "delivered"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnchecked, StatusApproved, StatusInRoute, StatusDelivered, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s ends the prescription's lifecycle. A terminal
// prescription never changes status again.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusRejected
}

type Prescription struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"index;not null" json:"user_id"`
	FileName    string    `gorm:"not null" json:"file_name"`
	Status      Status    `gorm:"not null" json:"status"`
	IsDispensed bool      `json:"is_dispensed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Prescription) TableName() string { return "prescriptions" }
