package auth

import "errors"

var (
	// ErrAuthenticationFailed is returned for every login failure, whether
	// the username or the password was wrong. No enumeration signal.
	ErrAuthenticationFailed = errors.New("invalid credentials")

	// ErrInvalidClient covers both an unknown client_id and a redirect_uri
	// that does not match the registry's stored value.
	ErrInvalidClient = errors.New("invalid client")

	// ErrPKCERequired is returned when the authorization request carries no
	// usable S256 code challenge.
	ErrPKCERequired = errors.New("code challenge required")

	// ErrInvalidCode covers unknown, expired and already-redeemed codes.
	ErrInvalidCode = errors.New("invalid authorization code")

	// ErrPKCEFailed means the presented verifier does not match the
	// challenge the code was bound to. The code is already consumed.
	ErrPKCEFailed = errors.New("PKCE verification failed")
)
