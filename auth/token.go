// Package auth implements phone-plus-OTP authentication with JWT
// access tokens. Tokens carry the user id, role and preferred language
// so handlers can authorize and localize without a store lookup.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/storage"
)

// DefaultTokenTTL is the access token lifetime when config leaves it
// unset.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims is the JWT payload issued on successful OTP verification.
type Claims struct {
	Role     string `json:"role"`
	Language string `json:"language,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// IsAdmin reports whether the token carries the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == storage.RoleAdmin
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer. ttl <= 0 falls back to
// DefaultTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs an access token for the user.
func (t *TokenIssuer) Issue(user *storage.User) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Role:     user.Role,
		Language: user.Language,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, rejecting any signing method
// other than HS256.
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized("Token has expired")
		}
		return nil, apperr.Unauthorized("Could not validate credentials")
	}
	if claims.Subject == "" {
		return nil, apperr.Unauthorized("Could not validate credentials")
	}
	return claims, nil
}
