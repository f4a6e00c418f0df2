// Package sessioncookie signs the browser's session cookie. The cookie only names a
// server-side session; it never carries provider tokens.
package sessioncookie

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 session cookies
type Signer struct {
	secret []byte
	maxAge time.Duration
}

func NewSigner(secret string, maxAge time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("[sessioncookie NewSigner] secret is required")
	}
	return &Signer{
		secret: []byte(secret),
		maxAge: maxAge,
	}, nil
}

// MaxAge is the cookie lifetime
func (s *Signer) MaxAge() time.Duration {
	return s.maxAge
}

func (s *Signer) Sign(sessionID string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie with HMAC: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns the session id it names
func (s *Signer) Parse(raw string, now time.Time) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, s.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", fmt.Errorf("[sessioncookie Parse] %w", err)
	}
	if c.SessionID == "" {
		return "", errors.New("[sessioncookie Parse] missing session id")
	}
	return c.SessionID, nil
}

func (s *Signer) verificationKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}
