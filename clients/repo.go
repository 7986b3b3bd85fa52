package clients

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("client not found")

type Repo interface {
	Upsert(ctx context.Context, client *Client) error
	Get(ctx context.Context, clientID string) (*Client, error)
}
