package authcode

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrCodeNotFound covers codes that never existed and codes already
	// consumed; callers must not be able to tell the two apart.
	ErrCodeNotFound = errors.New("authorization code not found")
	// ErrCodeExpired is kept distinct for observability only. HTTP
	// responses collapse it with ErrCodeNotFound.
	ErrCodeExpired = errors.New("authorization code expired")
)

const codeGenerationLength = 32 // 256 bits of entropy

type Store interface {
	// Issue generates a random URL-safe code and durably persists its binding.
	Issue(ctx context.Context, userID int64, clientID, redirectURI, codeChallenge string, ttl time.Duration) (string, error)

	// Redeem atomically consumes the code: existence check and delete happen
	// as one unit, so of any number of concurrent redeemers exactly one
	// receives the binding and the rest receive ErrCodeNotFound.
	Redeem(ctx context.Context, code string) (*AuthorizationCode, error)
}

func generateCode() (string, error) {
	bytes := make([]byte, codeGenerationLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", pkgerrors.Wrap(err, "[authcode.generateCode] rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
