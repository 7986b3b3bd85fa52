package repofake

import (
	"context"
	"sync"

	"github.com/brokenrx/rx-auth/users"
)

// FakeUserRepo is a thread-safe in-memory implementation of users.Repo for testing.
type FakeUserRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*users.User
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		nextID: 1,
		byID:   make(map[int64]*users.User),
	}
}

var _ users.Repo = (*FakeUserRepo)(nil)

func (r *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Username == user.Username {
			return users.ErrUsernameTaken
		}
	}

	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	} else if user.ID >= r.nextID {
		r.nextID = user.ID + 1
	}

	copied := *user
	r.byID[user.ID] = &copied
	return nil
}

func (r *FakeUserRepo) GetByUsername(_ context.Context, username string) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, users.ErrNotFound
}

func (r *FakeUserRepo) GetByID(_ context.Context, id int64) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *FakeUserRepo) CountByRole(_ context.Context, role users.Role) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, u := range r.byID {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

// Delete removes a user, for tests that need a dangling user reference.
func (r *FakeUserRepo) Delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}
