package rx

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("prescription not found")

	// ErrStatusFinal is returned when updating a delivered or rejected
	// prescription.
	ErrStatusFinal = errors.New("prescription status is final")

	// ErrInvalidStatus is returned for a status outside the closed set.
	ErrInvalidStatus = errors.New("invalid prescription status")
)

// UserCount pairs a username with the number of prescriptions they have
// submitted. Used by the admin dashboard aggregate.
type UserCount struct {
	Username string `json:"username"`
	Count    int64  `json:"count"`
}

// Repo abstracts prescription persistence. Listings are newest first.
type Repo interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id string) (*Prescription, error)
	ListByUser(ctx context.Context, userID int64) ([]Prescription, error)
	ListAll(ctx context.Context) ([]Prescription, error)

	// UpdateStatus moves a prescription to status. It fails with
	// ErrStatusFinal when the current status is terminal and with
	// ErrInvalidStatus when status is outside the closed set. The read
	// and write happen atomically.
	UpdateStatus(ctx context.Context, id string, status Status) (*Prescription, error)

	// CountByUsername returns per-user submission counts.
	CountByUsername(ctx context.Context) ([]UserCount, error)
}
