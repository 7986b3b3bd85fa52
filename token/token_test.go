package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/brokenrx/rx-auth/token"
	"github.com/brokenrx/rx-auth/token/keys"
	"github.com/brokenrx/rx-auth/users"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "http://localhost:8000"
	testAudience = "brokenrx-api"
	testClientID = "BrokenRx_client"
	testUserID   = int64(7)
)

func newKeyPair(t *testing.T) *keys.KeyPair {
	t.Helper()
	kp, err := keys.GenerateKeyPair("test-key", 2048)
	require.NoError(t, err)
	return kp
}

func newIssuerAndValidator(t *testing.T, now func() time.Time) (*token.Issuer, *token.Validator) {
	t.Helper()

	kp := newKeyPair(t)
	signer := keys.NewKeyPairSigner(kp)

	issuer, err := token.NewIssuer(signer, testIssuer, testAudience, time.Hour, token.WithIssuerNowFunc(now))
	require.NoError(t, err)

	validator, err := token.NewValidator(keys.NewPublicKeyVerifier(kp.PublicKey), testIssuer, testAudience, token.WithValidatorNowFunc(now))
	require.NoError(t, err)

	return issuer, validator
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	now := time.Now()
	issuer, validator := newIssuerAndValidator(t, func() time.Time { return now })

	raw, err := issuer.Issue(testUserID, users.RoleAdmin, testClientID)
	require.NoError(t, err)

	claims, err := validator.Validate(raw)
	require.NoError(t, err)

	require.Equal(t, "7", claims.Subject)
	require.Equal(t, users.RoleAdmin, claims.Role)
	require.Equal(t, testClientID, claims.ClientID)
	require.Equal(t, string(users.RoleAdmin), claims.Scope)
	require.NotEmpty(t, claims.ID, "jti must be set")

	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, testUserID, id)

	require.True(t, claims.IsAdmin())
	require.False(t, claims.IsUser())
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	now := time.Now()
	issuer, validator := newIssuerAndValidator(t, func() time.Time { return now })

	raw, err := issuer.Issue(testUserID, users.RoleUser, testClientID)
	require.NoError(t, err)

	// Flip one byte in the payload segment.
	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[4] == 'A' {
		payload[4] = 'B'
	} else {
		payload[4] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = validator.Validate(tampered)
	require.ErrorIs(t, err, token.ErrTokenInvalid)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	issuer, validator := newIssuerAndValidator(t, func() time.Time { return now })

	raw, err := issuer.Issue(testUserID, users.RoleUser, testClientID)
	require.NoError(t, err)

	now = now.Add(time.Hour + time.Minute)
	_, err = validator.Validate(raw)
	require.ErrorIs(t, err, token.ErrTokenExpired)
}

func TestValidateRejectsWrongAudienceAndIssuer(t *testing.T) {
	kp := newKeyPair(t)
	signer := keys.NewKeyPairSigner(kp)
	verifier := keys.NewPublicKeyVerifier(kp.PublicKey)

	issuer, err := token.NewIssuer(signer, testIssuer, testAudience, time.Hour)
	require.NoError(t, err)

	raw, err := issuer.Issue(testUserID, users.RoleUser, testClientID)
	require.NoError(t, err)

	wrongAud, err := token.NewValidator(verifier, testIssuer, "some-other-api")
	require.NoError(t, err)
	_, err = wrongAud.Validate(raw)
	require.ErrorIs(t, err, token.ErrTokenInvalid)

	wrongIss, err := token.NewValidator(verifier, "http://evil.example", testAudience)
	require.NoError(t, err)
	_, err = wrongIss.Validate(raw)
	require.ErrorIs(t, err, token.ErrTokenInvalid)
}

func TestValidateRejectsTokenFromDifferentKey(t *testing.T) {
	now := time.Now()
	issuer, _ := newIssuerAndValidator(t, func() time.Time { return now })
	_, otherValidator := newIssuerAndValidator(t, func() time.Time { return now })

	raw, err := issuer.Issue(testUserID, users.RoleUser, testClientID)
	require.NoError(t, err)

	_, err = otherValidator.Validate(raw)
	require.ErrorIs(t, err, token.ErrTokenInvalid)
}

func TestValidateRequiresSubAndKnownRole(t *testing.T) {
	kp := newKeyPair(t)
	signer := keys.NewKeyPairSigner(kp)

	validator, err := token.NewValidator(keys.NewPublicKeyVerifier(kp.PublicKey), testIssuer, testAudience)
	require.NoError(t, err)

	now := time.Now()
	base := jwt.MapClaims{
		"iss":       testIssuer,
		"aud":       testAudience,
		"role":      "user",
		"client_id": testClientID,
		"scope":     "user",
		"iat":       now.Unix(),
		"exp":       now.Add(time.Hour).Unix(),
		"jti":       "test-jti",
	}

	t.Run("missing sub", func(t *testing.T) {
		raw, err := signer.Sign(base)
		require.NoError(t, err)
		_, err = validator.Validate(raw)
		require.ErrorIs(t, err, token.ErrTokenInvalid)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := jwt.MapClaims{}
		for k, v := range base {
			claims[k] = v
		}
		claims["sub"] = "7"
		claims["role"] = "superuser"

		raw, err := signer.Sign(claims)
		require.NoError(t, err)
		_, err = validator.Validate(raw)
		require.ErrorIs(t, err, token.ErrTokenInvalid)
	})
}

func TestKeyPairPEMRoundTrip(t *testing.T) {
	kp := newKeyPair(t)

	privPEM, err := kp.ExportPrivateKeyPEM()
	require.NoError(t, err)
	pubPEM, err := kp.ExportPublicKeyPEM()
	require.NoError(t, err)

	privKey, err := keys.ParsePrivateKeyPEM([]byte(privPEM))
	require.NoError(t, err)
	require.True(t, privKey.Equal(kp.PrivateKey))

	pubKey, err := keys.ParsePublicKeyPEM([]byte(pubPEM))
	require.NoError(t, err)
	require.True(t, pubKey.Equal(kp.PublicKey))
}

func TestJWKSExportsPublicKey(t *testing.T) {
	kp := newKeyPair(t)
	jwks := kp.JWKS()

	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "RSA", jwks.Keys[0].Kty)
	require.Equal(t, keys.RS256, jwks.Keys[0].Alg)
	require.Equal(t, "test-key", jwks.Keys[0].Kid)
	require.NotEmpty(t, jwks.Keys[0].N)
	require.NotEmpty(t, jwks.Keys[0].E)
}
