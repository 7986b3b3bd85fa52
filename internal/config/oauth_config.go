package config

import (
	"strconv"
	"time"
)

type OAuthConfig interface {
	GetIssuer() string
	GetAudience() string
	GetAccessTokenExpiry() time.Duration
	GetAuthCodeTimeout() time.Duration
	GetSigningKeyID() string
	GetPrivateKeyPath() string
	GetPublicKeyPath() string
	GetClientID() string
	GetClientName() string
	GetClientRedirectURI() string
	GetSessionTimeout() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetIssuer defaults to the server's base URL; the two only diverge behind a
// reverse proxy.
func (OAuth) GetIssuer() string {
	return GetEnv("ISSUER", EnvVars{}.GetBaseURL())
}

func (OAuth) GetAudience() string {
	return GetEnv("AUDIENCE", "brokenrx-api")
}

func (OAuth) GetAccessTokenExpiry() time.Duration {
	return getDurationSeconds("ACCESS_TOKEN_TTL", time.Hour)
}

func (OAuth) GetAuthCodeTimeout() time.Duration {
	return getDurationSeconds("AUTH_CODE_TTL", 10*time.Minute)
}

func (OAuth) GetSigningKeyID() string {
	return GetEnv("SIGNING_KEY_ID", "brokenrx-auth-1")
}

func (OAuth) GetPrivateKeyPath() string {
	return GetEnv("PRIVATE_KEY_PATH", "")
}

func (OAuth) GetPublicKeyPath() string {
	return GetEnv("PUBLIC_KEY_PATH", "")
}

func (OAuth) GetClientID() string {
	return GetEnv("CLIENT_ID", "BrokenRx_client")
}

func (OAuth) GetClientName() string {
	return GetEnv("CLIENT_NAME", "BrokenRx Prescription Systems")
}

func (OAuth) GetClientRedirectURI() string {
	return GetEnv("CLIENT_REDIRECT_URI", "http://localhost:5000/callback")
}

func (OAuth) GetSessionTimeout() time.Duration {
	return getDurationSeconds("SESSION_TTL", 12*time.Hour)
}

func getDurationSeconds(envVar string, defaultValue time.Duration) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}
