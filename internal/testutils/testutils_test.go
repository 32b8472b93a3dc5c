package testutils

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/config"
	"github.com/phrazzld/scry-decks/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_VerifiesWithSameSecret(t *testing.T) {
	userID := uuid.New()
	verifier, err := auth.NewVerifier(config.AuthConfig{JWTSecret: TestJWTSecret})
	require.NoError(t, err)

	claims, err := verifier.ValidateToken(context.Background(), AccessToken(t, TestJWTSecret, userID, TestTokenLifetime))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, auth.AccessTokenType, claims.TokenType)
}

func TestNewAuthRequest(t *testing.T) {
	req := NewAuthRequest(t, http.MethodPost, "/api/decks", "tok", map[string]string{"deck_id": "x"})
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	req = NewAuthRequest(t, http.MethodGet, "/api/decks", "", nil)
	assert.Empty(t, req.Header.Get("Authorization"))
}
