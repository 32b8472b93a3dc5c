package testutils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	// TestJWTSecret is a test-only signing secret. It must never be used in production.
	TestJWTSecret = "test-jwt-secret-that-is-32-chars-long"

	// TestTokenLifetime is the default lifetime of test access tokens.
	TestTokenLifetime = 15 * time.Minute
)

// AccessToken signs an HS256 access token for userID that expires after lifetime.
func AccessToken(t *testing.T, secret string, userID uuid.UUID, lifetime time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := struct {
		TokenType string `json:"type"`
		jwt.RegisteredClaims
	}{
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}
