package gormrepo

import (
	"context"

	"github.com/brokenrx/rx-auth/users"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Repo is a gorm-backed implementation of users.Repo.
type Repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

var _ users.Repo = (*Repo)(nil)

func (r *Repo) Create(ctx context.Context, user *users.User) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&users.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return errors.Wrap(err, "[gormrepo.Create] username lookup")
	}
	if count > 0 {
		return users.ErrUsernameTaken
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return errors.Wrap(err, "[gormrepo.Create] insert")
	}
	return nil
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	var user users.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, users.ErrNotFound
		}
		return nil, errors.Wrap(err, "[gormrepo.GetByUsername] query")
	}
	return &user, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*users.User, error) {
	var user users.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, users.ErrNotFound
		}
		return nil, errors.Wrap(err, "[gormrepo.GetByID] query")
	}
	return &user, nil
}

func (r *Repo) CountByRole(ctx context.Context, role users.Role) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&users.User{}).Where("role = ?", role).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "[gormrepo.CountByRole] count")
	}
	return count, nil
}
