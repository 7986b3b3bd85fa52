// Package authcode persists one-time OAuth2 authorization codes and
// guarantees each code is redeemed at most once, even under concurrent
// redemption attempts.
package authcode

import "time"

// AuthorizationCode binds an issued code to the resource owner, the client it
// was issued for, the registered redirect URI and the PKCE challenge.
// Lifecycle: issued -> redeemed (record removed) or expired (record removed
// on next redemption attempt). Never both.
type AuthorizationCode struct {
	Code          string    `gorm:"primaryKey"`
	UserID        int64     `gorm:"not null;index"`
	ClientID      string    `gorm:"not null"`
	RedirectURI   string    `gorm:"not null"`
	CodeChallenge string    `gorm:"not null"`
	ExpiresAt     time.Time `gorm:"not null"`
}

func (AuthorizationCode) TableName() string { return "authorization_codes" }
