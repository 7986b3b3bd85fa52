// Package pkce implements the S256 proof-of-possession check from RFC 7636.
// The verifier never leaves the client until redemption time; the server
// stores only the derived challenge, which cannot be reversed.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/pkg/errors"
)

const verifierLength = 64 // bytes of entropy in a generated verifier

// DeriveChallenge returns the S256 code challenge for a verifier: the
// base64url encoding of the SHA-256 of its bytes, with padding stripped.
func DeriveChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// Verify recomputes the challenge from verifier and compares it against the
// stored challenge in constant time. Missing arguments fail closed; a
// malformed verifier simply hashes to something else and fails the compare.
func Verify(verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	derived := DeriveChallenge(verifier)
	return subtle.ConstantTimeCompare([]byte(derived), []byte(challenge)) == 1
}

// GenerateVerifier returns a new high-entropy URL-safe verifier.
func GenerateVerifier() (string, error) {
	bytes := make([]byte, verifierLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "[pkce.GenerateVerifier] rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GeneratePair returns a fresh verifier and its matching challenge.
func GeneratePair() (verifier, challenge string, err error) {
	verifier, err = GenerateVerifier()
	if err != nil {
		return "", "", err
	}
	return verifier, DeriveChallenge(verifier), nil
}
