package services

import (
	"context"
	"testing"
	"time"

	"github.com/slotswapper/slotswapper/apperrors"
	"github.com/slotswapper/slotswapper/database/memorystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService() *AuthService {
	return NewAuthService(memorystore.New().Users(), "test-secret", time.Hour)
}

func TestSignupAndTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()

	user, token, err := svc.Signup(ctx, "Alice", "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "Alice", user.Name)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash, "password must be hashed")

	userID, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	loaded, err := svc.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, loaded.Email)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()

	_, _, err := svc.Signup(ctx, "Alice", "alice@example.com", "password-one")
	require.NoError(t, err)

	_, _, err = svc.Signup(ctx, "Imposter", "alice@example.com", "password-two")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()

	signed, _, err := svc.Signup(ctx, "Alice", "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, token, err := svc.Login(ctx, "alice@example.com", "correct horse battery")
		require.NoError(t, err)
		assert.Equal(t, signed.ID, user.ID)

		userID, err := svc.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, signed.ID, userID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "alice@example.com", "wrong")
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@example.com", "whatever")
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
	})
}

func TestVerifyToken_Rejections(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()

	_, token, err := svc.Signup(ctx, "Alice", "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"tampered", token + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyToken(tt.token)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized), "got %v", err)
		})
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthService(memorystore.New().Users(), "other-secret", time.Hour)
		_, err := other.VerifyToken(token)
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
	})

	t.Run("expired", func(t *testing.T) {
		short := NewAuthService(memorystore.New().Users(), "test-secret", -time.Minute)
		_, expiredToken, err := short.Signup(ctx, "Bob", "bob@example.com", "another password")
		require.NoError(t, err)

		_, err = short.VerifyToken(expiredToken)
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
	})
}
