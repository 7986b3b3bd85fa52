// Package token builds and validates the signed JWT access tokens that make
// resource-server checks stateless: everything a request needs is inside the
// validated claims, nothing is re-derived from storage.
package token

import (
	"strconv"

	"github.com/brokenrx/rx-auth/users"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the fixed claim set carried by every access token.
type AccessClaims struct {
	Role     users.Role `json:"role"`
	ClientID string     `json:"client_id"`
	Scope    string     `json:"scope"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim as the numeric user id.
func (c *AccessClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// IsAdmin is a pure function of the validated claims.
func (c *AccessClaims) IsAdmin() bool {
	return c.Role == users.RoleAdmin
}

// IsUser is a pure function of the validated claims.
func (c *AccessClaims) IsUser() bool {
	return c.Role == users.RoleUser
}
