package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return NewFromClient(raw), mr
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)

	for i := 1; i <= 2; i++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "login:ip", 2, time.Minute)
		require.NoError(t, err)
		require.True(t, allowed)
		require.EqualValues(t, i, count)
	}
	require.Equal(t, time.Minute, mr.TTL(client.RateLimitKey("login:ip")))

	allowed, _, err := client.FixedWindowAllow(ctx, "login:ip", 2, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)

	mr.FastForward(time.Minute + time.Second)
	allowed, count, err := client.FixedWindowAllow(ctx, "login:ip", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)
	require.EqualValues(t, 1, count)
}

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	ok, err := client.SetNX(ctx, "k", "v1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.SetNX(ctx, "k", "v2", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v1", got)

	require.NoError(t, client.Del(ctx, "k"))
	_, err = client.Get(ctx, "k")
	require.ErrorIs(t, err, redis.Nil)
}

func TestSetHelpers(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	key := client.UserSessionsKey("user-1")

	require.NoError(t, client.AddToSet(ctx, key, time.Hour, "a", "b"))
	members, err := client.SetMembers(ctx, key)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, members)
	require.Equal(t, time.Hour, mr.TTL(key))

	require.NoError(t, client.RemoveFromSet(ctx, key, "a"))
	members, err = client.SetMembers(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, members)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	require.Equal(t, "ph:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	require.Equal(t, "ph:rate_limit:scope", client.RateLimitKey("scope"))
	require.Equal(t, "ph:session:access:abc", client.AccessSessionKey("abc"))
	require.Equal(t, "ph:session:user:u1", client.UserSessionsKey("u1"))
	require.Equal(t, "ph:lock:cron:dev", client.LockKey("cron:dev"))
	require.Equal(t, "ph:cache:search:q", client.CacheKey("search", "", "q"))
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	require.Error(t, client.Ping(context.Background()))
	_, err := client.Get(context.Background(), "x")
	require.Error(t, err)
}
