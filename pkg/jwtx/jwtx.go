// Package jwtx signs and verifies the EdDSA session tokens issued at login.
package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is how long a session token stays valid unless the
// application configures otherwise.
const DefaultSessionTTL = 12 * time.Hour

var (
	ErrInvalidToken = errors.New("jwtx: invalid token")
	ErrTokenExpired = errors.New("jwtx: token expired")
)

// Claims are the session claims carried by an access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// KeyPair holds the Ed25519 signing key material for session tokens.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// GenerateKeyPair creates a fresh Ed25519 key pair. Sessions issued before a
// restart become invalid, which is acceptable for this service.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("jwtx: generate key pair: %w", err)
	}
	return KeyPair{Private: priv, Public: pub}, nil
}

// Signer mints session tokens.
type Signer struct {
	Key    ed25519.PrivateKey
	Issuer string
	TTL    time.Duration
}

// Sign issues a token for the given subject (user id) and email.
func (s *Signer) Sign(subject, email string) (string, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.Key)
}

// Verifier validates session tokens.
type Verifier struct {
	Key    ed25519.PublicKey
	Issuer string
}

// Verify parses and validates a raw token, returning its claims.
func (v *Verifier) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("jwtx: unexpected signing method %q", t.Method.Alg())
		}
		return v.Key, nil
	},
		jwt.WithIssuer(v.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
