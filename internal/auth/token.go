// Package auth reads the session tokens issued by the task service.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenType is the scheme sent in the Authorization header.
const TokenType = "Bearer"

// ErrExpired is returned for a session token past its expiry.
var ErrExpired = errors.New("session expired")

// Claims are the registered claims of a session token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Inspect decodes the claims of a JWT without verifying its signature; the
// signing key stays on the server.
func Inspect(raw string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &rc); err != nil {
		return Claims{}, fmt.Errorf("decode session token: %w", err)
	}

	claims := Claims{Subject: rc.Subject}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	return claims, nil
}

// NewToken wraps a raw session token for storage. The expiry comes from
// the exp claim when the token is a JWT; opaque tokens never expire locally.
func NewToken(raw string) *oauth2.Token {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), TokenType+" "))
	token := &oauth2.Token{AccessToken: raw, TokenType: TokenType}
	if claims, err := Inspect(raw); err == nil {
		token.Expiry = claims.ExpiresAt
	}
	return token
}

// Check returns ErrExpired when token is past its expiry.
func Check(token *oauth2.Token, now time.Time) error {
	if token.Expiry.IsZero() || now.Before(token.Expiry) {
		return nil
	}
	return fmt.Errorf("%w at %s", ErrExpired, token.Expiry.Local().Format(time.DateTime))
}
