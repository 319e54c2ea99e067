package cron

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	pkgredis "github.com/angelmondragon/propertyhub-backend/pkg/redis"
)

func TestLockName(t *testing.T) {
	require.Equal(t, "propertyhub-cron:prod", LockName("propertyhub-cron", "prod"))
	require.Equal(t, "propertyhub-cron:local", LockName("", ""))
	require.Equal(t, "hub-jobs:staging", LockName("hub-jobs", "staging"))
}

func TestRedisLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	client := pkgredis.NewFromClient(raw)
	key := client.LockKey(LockName("propertyhub-cron", "test"))

	first, err := NewRedisLock(client, key, time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(client, key, time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Minute, mr.TTL(key))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// A worker that never held the lock cannot release it.
	require.NoError(t, second.Release(ctx))
	require.True(t, mr.Exists(key))

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}
