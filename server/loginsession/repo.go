// Package loginsession keeps the cookie-backed browser sessions used by the
// login and authorize pages. Sessions are server-side state only; the browser
// holds nothing but an opaque session ID.
package loginsession

import (
	"errors"
	"time"

	"github.com/brokenrx/rx-auth/users"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID     string
	UserID int64
	Role   users.Role

	// PendingQuery holds the raw query string of an /authorize request that
	// arrived before the user logged in. It is replayed once after login.
	PendingQuery string

	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session has passed its expiry at time now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Authenticated reports whether the session belongs to a logged-in user.
// A session created just to stash a pending authorize query has no user yet.
func (s Session) Authenticated() bool {
	return s.UserID != 0
}

type Repo interface {
	Upsert(sessionID string, session Session) error
	Get(sessionID string) (Session, error)
	Delete(sessionID string) error
}
