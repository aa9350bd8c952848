package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signingKey signs the session tokens handed out by FakeServer.
var signingKey = []byte("rsm-test-key")

func signToken(subject string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-24 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}

// SignToken returns an HS256 session token for subject.
func SignToken(t testing.TB, subject string, expiresAt time.Time) string {
	t.Helper()
	token, err := signToken(subject, expiresAt)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}
