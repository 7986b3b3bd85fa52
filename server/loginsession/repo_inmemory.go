package loginsession

import (
	"fmt"
	"sync"
	"time"
)

// InMemoryRepo is an in-memory implementation of Repo. Expired sessions are
// dropped lazily on read.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
	nowFunc  func() time.Time
}

type InMemoryRepoOption func(*InMemoryRepo)

// WithNowFunc overrides the clock used for expiry checks.
func WithNowFunc(now func() time.Time) InMemoryRepoOption {
	return func(r *InMemoryRepo) {
		r.nowFunc = now
	}
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo(options ...InMemoryRepoOption) *InMemoryRepo {
	repo := &InMemoryRepo{
		sessions: make(map[string]Session),
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(repo)
	}
	return repo
}

var _ Repo = (*InMemoryRepo)(nil)

// Upsert creates or updates a session
func (r *InMemoryRepo) Upsert(sessionID string, session Session) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = session
	return nil
}

// Get retrieves a session by ID. An expired session is deleted and reported
// as not found.
func (r *InMemoryRepo) Get(sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}

	if session.Expired(r.nowFunc()) {
		delete(r.sessions, sessionID)
		return Session{}, ErrNotFound
	}

	return session, nil
}

// Delete removes a session
func (r *InMemoryRepo) Delete(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}
