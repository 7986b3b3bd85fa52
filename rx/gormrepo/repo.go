// Package gormrepo persists prescriptions through gorm.
package gormrepo

import (
	"context"

	"github.com/brokenrx/rx-auth/rx"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

var _ rx.Repo = (*Repo)(nil)

func (r *Repo) Create(ctx context.Context, p *rx.Prescription) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = rx.StatusUnchecked
	}
	if !p.Status.Valid() {
		return rx.ErrInvalidStatus
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return errors.Wrap(err, "[gormrepo.Create] insert")
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*rx.Prescription, error) {
	var p rx.Prescription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rx.ErrNotFound
		}
		return nil, errors.Wrap(err, "[gormrepo.GetByID] query")
	}
	return &p, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]rx.Prescription, error) {
	var list []rx.Prescription
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "[gormrepo.ListByUser] query")
	}
	return list, nil
}

func (r *Repo) ListAll(ctx context.Context) ([]rx.Prescription, error) {
	var list []rx.Prescription
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "[gormrepo.ListAll] query")
	}
	return list, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, status rx.Status) (*rx.Prescription, error) {
	if !status.Valid() {
		return nil, rx.ErrInvalidStatus
	}

	var updated rx.Prescription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current rx.Prescription
		if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return rx.ErrNotFound
			}
			return errors.Wrap(err, "[gormrepo.UpdateStatus] lookup")
		}
		if current.Status.Terminal() {
			return rx.ErrStatusFinal
		}
		if err := tx.Model(&current).Update("status", status).Error; err != nil {
			return errors.Wrap(err, "[gormrepo.UpdateStatus] update")
		}
		current.Status = status
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *Repo) CountByUsername(ctx context.Context) ([]rx.UserCount, error) {
	var counts []rx.UserCount
	err := r.db.WithContext(ctx).
		Model(&rx.Prescription{}).
		Select("users.username AS username, COUNT(prescriptions.id) AS count").
		Joins("JOIN users ON users.id = prescriptions.user_id").
		Group("users.username").
		Scan(&counts).Error
	if err != nil {
		return nil, errors.Wrap(err, "[gormrepo.CountByUsername] aggregate")
	}
	return counts, nil
}
