package token

import (
	"strconv"
	"time"

	"github.com/brokenrx/rx-auth/token/keys"
	"github.com/brokenrx/rx-auth/users"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Issuer mints signed access tokens. It is stateless: nothing is persisted
// and nothing is looked up at issue time.
type Issuer struct {
	signer   keys.Signer
	issuer   string
	audience string
	expiry   time.Duration
	nowFunc  func() time.Time
}

type IssuerOption func(*Issuer)

// WithIssuerNowFunc sets the clock (primarily for testing)
func WithIssuerNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(signer keys.Signer, issuer, audience string, expiry time.Duration, options ...IssuerOption) (*Issuer, error) {
	if signer == nil {
		return nil, errors.New("[NewIssuer] signer is required")
	}
	if issuer == "" || audience == "" {
		return nil, errors.New("[NewIssuer] issuer and audience are required")
	}
	if expiry <= 0 {
		expiry = time.Hour
	}

	i := &Issuer{
		signer:   signer,
		issuer:   issuer,
		audience: audience,
		expiry:   expiry,
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

// Issue builds and signs an access token for the authenticated user. The
// scope claim mirrors the role: both values come from the same closed enum.
func (i *Issuer) Issue(userID int64, role users.Role, clientID string) (string, error) {
	now := i.nowFunc()
	claims := jwt.MapClaims{
		"iss":       i.issuer,
		"aud":       i.audience,
		"sub":       strconv.FormatInt(userID, 10),
		"role":      string(role),
		"client_id": clientID,
		"scope":     string(role),
		"iat":       now.Unix(),
		"exp":       now.Add(i.expiry).Unix(),
		"jti":       uuid.New().String(), // supports future revocation, not checked against a blacklist
	}

	signedToken, err := i.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Issuer.Issue] sign")
	}
	return signedToken, nil
}

// Expiry returns the configured token lifetime.
func (i *Issuer) Expiry() time.Duration {
	return i.expiry
}
