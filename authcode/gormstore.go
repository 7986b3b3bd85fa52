package authcode

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormStore is the durable Store implementation.
type GormStore struct {
	db      *gorm.DB
	nowFunc func() time.Time
}

type GormStoreOption func(*GormStore)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) GormStoreOption {
	return func(s *GormStore) {
		s.nowFunc = now
	}
}

func NewGormStore(db *gorm.DB, options ...GormStoreOption) *GormStore {
	s := &GormStore{
		db:      db,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) Issue(ctx context.Context, userID int64, clientID, redirectURI, codeChallenge string, ttl time.Duration) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	record := &AuthorizationCode{
		Code:          code,
		UserID:        userID,
		ClientID:      clientID,
		RedirectURI:   redirectURI,
		CodeChallenge: codeChallenge,
		ExpiresAt:     s.nowFunc().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", errors.Wrap(err, "[GormStore.Issue] insert")
	}
	return code, nil
}

// Redeem fetches and deletes the code inside a single transaction. The
// delete's affected-row count is the linearization point: when two callers
// race on the same code, exactly one observes RowsAffected == 1 and the
// other gets ErrCodeNotFound. This replaces the naive read-then-delete,
// which lets both racers through.
func (s *GormStore) Redeem(ctx context.Context, code string) (*AuthorizationCode, error) {
	var record AuthorizationCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("code = ?", code).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCodeNotFound
			}
			return errors.Wrap(err, "[GormStore.Redeem] fetch")
		}

		result := tx.Where("code = ?", code).Delete(&AuthorizationCode{})
		if result.Error != nil {
			return errors.Wrap(result.Error, "[GormStore.Redeem] delete")
		}
		if result.RowsAffected == 0 {
			// A concurrent redemption consumed the code first.
			return ErrCodeNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The delete above is committed either way: an expired code is removed
	// from storage and rejected, never redeemed.
	if !s.nowFunc().Before(record.ExpiresAt) {
		return nil, ErrCodeExpired
	}
	return &record, nil
}
