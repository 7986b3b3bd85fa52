package fakerepo

import (
	"context"
	"sync"

	"github.com/brokenrx/rx-auth/clients"
)

// FakeClientRepo is a thread-safe in-memory implementation of clients.Repo for testing.
type FakeClientRepo struct {
	mu      sync.RWMutex
	clients map[string]*clients.Client
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{
		clients: make(map[string]*clients.Client),
	}
}

var _ clients.Repo = (*FakeClientRepo)(nil)

func (r *FakeClientRepo) Upsert(_ context.Context, client *clients.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *client
	r.clients[client.ClientID] = &copied
	return nil
}

func (r *FakeClientRepo) Get(_ context.Context, clientID string) (*clients.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[clientID]
	if !ok {
		return nil, clients.ErrNotFound
	}
	copied := *client
	return &copied, nil
}
