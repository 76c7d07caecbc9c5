package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	sub, err := validateToken(makeToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": now.Add(time.Hour).Unix(),
	}), now)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)

	// No expiry claim is acceptable; the server decides token lifetime.
	sub, err = validateToken(makeToken(t, jwt.MapClaims{"sub": "user-2"}), now)
	require.NoError(t, err)
	assert.Equal(t, "user-2", sub)
}

func TestValidateTokenExpired(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	_, err := validateToken(makeToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": now.Add(-time.Minute).Unix(),
	}), now)
	assert.ErrorIs(t, err, ErrTokenUnavailable)

	// Expiring exactly now is already expired.
	_, err = validateToken(makeToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": now.Unix(),
	}), now)
	assert.ErrorIs(t, err, ErrTokenUnavailable)
}

func TestValidateTokenMissingSubject(t *testing.T) {
	now := time.Now()

	_, err := validateToken(makeToken(t, jwt.MapClaims{
		"exp": now.Add(time.Hour).Unix(),
	}), now)
	assert.ErrorIs(t, err, ErrTokenUnavailable)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := validateToken("not-a-jwt", time.Now())
	assert.ErrorIs(t, err, ErrTokenUnavailable)
}

func TestStaticProviderLifecycle(t *testing.T) {
	p := NewStaticProvider("user-1", "tok")
	ctx := context.Background()

	assert.True(t, p.IsSignedIn())

	id, ok := p.CurrentUserID()
	require.True(t, ok)
	assert.Equal(t, "user-1", id)

	token, err := p.CurrentToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	p.SignOut()
	assert.False(t, p.IsSignedIn())

	_, ok = p.CurrentUserID()
	assert.False(t, ok)

	_, err = p.CurrentToken(ctx)
	assert.ErrorIs(t, err, ErrTokenUnavailable)

	p.SignIn("user-2", "tok-2")
	id, ok = p.CurrentUserID()
	require.True(t, ok)
	assert.Equal(t, "user-2", id)
}
