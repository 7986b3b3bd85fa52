package keys

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs JWT claims with the issuer-held private key
type Signer interface {
	Sign(claims jwt.MapClaims) (string, error)
	Verifier
}

// Verifier supplies the verification key for parsing tokens. Resource
// servers only need this half.
type Verifier interface {
	GetVerificationKey(token *jwt.Token) (any, error)
}

// KeyPairSigner implements Signer using RSA with RS256
type KeyPairSigner struct {
	keyPair *KeyPair
}

func NewKeyPairSigner(keyPair *KeyPair) *KeyPairSigner {
	return &KeyPairSigner{keyPair: keyPair}
}

func (s *KeyPairSigner) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.keyPair.KeyID != "" {
		token.Header["kid"] = s.keyPair.KeyID
	}

	signedToken, err := token.SignedString(s.keyPair.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signedToken, nil
}

func (s *KeyPairSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.keyPair.PublicKey, nil
}

// PublicKeyVerifier verifies signatures with only the public key
type PublicKeyVerifier struct {
	publicKey *rsa.PublicKey
}

func NewPublicKeyVerifier(publicKey *rsa.PublicKey) *PublicKeyVerifier {
	return &PublicKeyVerifier{publicKey: publicKey}
}

func (v *PublicKeyVerifier) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.publicKey, nil
}
