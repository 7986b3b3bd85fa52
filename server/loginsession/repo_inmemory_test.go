package loginsession_test

import (
	"testing"
	"time"

	"github.com/brokenrx/rx-auth/server/loginsession"
	"github.com/brokenrx/rx-auth/users"
	"github.com/stretchr/testify/require"
)

func TestUpsertGetDelete(t *testing.T) {
	repo := loginsession.NewInMemoryRepo()

	session := loginsession.Session{
		ID:        "sess-1",
		UserID:    7,
		Role:      users.RoleUser,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Upsert(session.ID, session))

	got, err := repo.Get("sess-1")
	require.NoError(t, err)
	require.Equal(t, int64(7), got.UserID)
	require.True(t, got.Authenticated())

	require.NoError(t, repo.Delete("sess-1"))
	_, err = repo.Get("sess-1")
	require.ErrorIs(t, err, loginsession.ErrNotFound)
}

func TestGetDropsExpiredSession(t *testing.T) {
	now := time.Now()
	repo := loginsession.NewInMemoryRepo(loginsession.WithNowFunc(func() time.Time { return now }))

	session := loginsession.Session{
		ID:        "sess-1",
		UserID:    7,
		ExpiresAt: now.Add(time.Minute),
		CreatedAt: now,
	}
	require.NoError(t, repo.Upsert(session.ID, session))

	now = now.Add(2 * time.Minute)
	_, err := repo.Get("sess-1")
	require.ErrorIs(t, err, loginsession.ErrNotFound)
}

func TestAnonymousSessionStashesPendingQuery(t *testing.T) {
	repo := loginsession.NewInMemoryRepo()

	session := loginsession.Session{
		ID:           "sess-1",
		PendingQuery: "client_id=BrokenRx_client&code_challenge=abc",
		ExpiresAt:    time.Now().Add(time.Hour),
		CreatedAt:    time.Now(),
	}
	require.NoError(t, repo.Upsert(session.ID, session))

	got, err := repo.Get("sess-1")
	require.NoError(t, err)
	require.False(t, got.Authenticated())
	require.Equal(t, session.PendingQuery, got.PendingQuery)
}
