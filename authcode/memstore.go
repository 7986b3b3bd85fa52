package authcode

import (
	"context"
	"sync"
	"time"
)

// MemStore is a thread-safe in-memory Store, used in tests and as a
// single-process fallback. The mutex spans the whole check-and-delete so
// concurrent redeemers observe the same single-use guarantee as GormStore.
type MemStore struct {
	mu      sync.Mutex
	codes   map[string]AuthorizationCode
	nowFunc func() time.Time
}

type MemStoreOption func(*MemStore)

func WithMemNowFunc(now func() time.Time) MemStoreOption {
	return func(s *MemStore) {
		s.nowFunc = now
	}
}

func NewMemStore(options ...MemStoreOption) *MemStore {
	s := &MemStore{
		codes:   make(map[string]AuthorizationCode),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

var _ Store = (*MemStore)(nil)

func (s *MemStore) Issue(_ context.Context, userID int64, clientID, redirectURI, codeChallenge string, ttl time.Duration) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = AuthorizationCode{
		Code:          code,
		UserID:        userID,
		ClientID:      clientID,
		RedirectURI:   redirectURI,
		CodeChallenge: codeChallenge,
		ExpiresAt:     s.nowFunc().Add(ttl),
	}
	return code, nil
}

func (s *MemStore) Redeem(_ context.Context, code string) (*AuthorizationCode, error) {
	s.mu.Lock()
	record, ok := s.codes[code]
	if ok {
		delete(s.codes, code)
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrCodeNotFound
	}
	if !s.nowFunc().Before(record.ExpiresAt) {
		return nil, ErrCodeExpired
	}
	return &record, nil
}
