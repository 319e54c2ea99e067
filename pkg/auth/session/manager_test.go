package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	redisclient "github.com/angelmondragon/propertyhub-backend/pkg/redis"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })

	manager, err := NewManager(redisclient.NewFromClient(raw), config.JWTConfig{
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	})
	require.NoError(t, err)
	return manager, mr
}

func TestManagerGenerateAndRotate(t *testing.T) {
	ctx := context.Background()
	manager, mr := newTestManager(t)

	token, err := manager.Generate(ctx, "user-1", "access-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, time.Hour, mr.TTL("ph:session:access:access-123"))

	_, _, err = manager.Rotate(ctx, "access-123", "wrong")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	newAccessID, newToken, err := manager.Rotate(ctx, "access-123", token)
	require.NoError(t, err)
	require.NotEqual(t, token, newToken)

	ok, err := manager.HasSession(ctx, "access-123")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = manager.HasSession(ctx, newAccessID)
	require.NoError(t, err)
	require.True(t, ok)

	_, _, err = manager.Rotate(ctx, "access-123", token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestManagerRevokeUser(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	_, err := manager.Generate(ctx, "user-1", "a1")
	require.NoError(t, err)
	_, err = manager.Generate(ctx, "user-1", "a2")
	require.NoError(t, err)
	_, err = manager.Generate(ctx, "user-2", "b1")
	require.NoError(t, err)

	require.NoError(t, manager.RevokeUser(ctx, "user-1"))

	for id, want := range map[string]bool{"a1": false, "a2": false, "b1": true} {
		ok, err := manager.HasSession(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, ok, id)
	}
}

func TestNewManagerValidatesTTL(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{})
	require.Error(t, err)

	mr := miniredis.RunT(t)
	raw := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	defer raw.Close()
	_, err = NewManager(redisclient.NewFromClient(raw), config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30})
	require.Error(t, err)
}
