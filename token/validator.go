package token

import (
	"errors"
	"time"

	"github.com/brokenrx/rx-auth/token/keys"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid covers every verification failure except expiry: bad
	// signature, wrong audience or issuer, missing required claims. Callers
	// get no partial trust and no detail.
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Validator verifies access tokens against the issuer's public key. It holds
// no per-request state and can run on a resource server far away from the
// components that minted the token.
type Validator struct {
	verifier keys.Verifier
	issuer   string
	audience string
	nowFunc  func() time.Time
}

type ValidatorOption func(*Validator)

// WithValidatorNowFunc sets the clock (primarily for testing)
func WithValidatorNowFunc(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.nowFunc = now
	}
}

func NewValidator(verifier keys.Verifier, issuer, audience string, options ...ValidatorOption) (*Validator, error) {
	if verifier == nil {
		return nil, errors.New("[NewValidator] verifier is required")
	}
	if issuer == "" || audience == "" {
		return nil, errors.New("[NewValidator] issuer and audience are required")
	}

	v := &Validator{
		verifier: verifier,
		issuer:   issuer,
		audience: audience,
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v, nil
}

// Validate verifies the signature, issuer, audience and expiry of rawToken
// and requires the sub claim and a known role. Mutating any byte of a valid
// token fails the signature check.
func (v *Validator) Validate(rawToken string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	_, err := jwt.ParseWithClaims(rawToken, claims, v.verifier.GetVerificationKey,
		jwt.WithValidMethods([]string{keys.RS256}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.nowFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	if !claims.Role.Valid() {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
