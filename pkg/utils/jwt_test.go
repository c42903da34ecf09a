package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenPairRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", "sop-rag-api")

	pair, err := m.GenerateTokenPair("tenant-1", "user-1", "manager", time.Hour, 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	access, err := m.ParseToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", access.TenantID)
	assert.Equal(t, "user-1", access.UserID)
	assert.Equal(t, "manager", access.Role)
	assert.Equal(t, TokenAccess, access.TokenType)

	refresh, err := m.ParseToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenRefresh, refresh.TokenType)
}

func TestParseTokenExpired(t *testing.T) {
	m := NewJWTManager("test-secret", "sop-rag-api")

	token, err := m.GenerateToken("", "user-1", "employee", TokenAccess, -time.Minute)
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseTokenWrongSecret(t *testing.T) {
	m := NewJWTManager("secret-a", "sop-rag-api")
	other := NewJWTManager("secret-b", "sop-rag-api")

	token, err := m.GenerateToken("tenant-1", "user-1", "admin", TokenAccess, time.Hour)
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenWrongIssuer(t *testing.T) {
	m := NewJWTManager("shared-secret", "issuer-a")
	other := NewJWTManager("shared-secret", "issuer-b")

	token, err := m.GenerateToken("tenant-1", "user-1", "employee", TokenAccess, time.Hour)
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
