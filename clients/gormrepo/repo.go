package gormrepo

import (
	"context"

	"github.com/brokenrx/rx-auth/clients"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repo is a gorm-backed implementation of clients.Repo.
type Repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

var _ clients.Repo = (*Repo)(nil)

func (r *Repo) Upsert(ctx context.Context, client *clients.Client) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}},
		UpdateAll: true,
	}).Create(client).Error
	if err != nil {
		return errors.Wrap(err, "[gormrepo.Upsert] client")
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, clientID string) (*clients.Client, error) {
	var client clients.Client
	if err := r.db.WithContext(ctx).Where("client_id = ?", clientID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, clients.ErrNotFound
		}
		return nil, errors.Wrap(err, "[gormrepo.Get] query")
	}
	return &client, nil
}
