package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestLocalGuard(t *testing.T) {
	g := NewLocalGuard()
	ctx := context.Background()

	release, ok, err := g.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = g.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release() // idempotent

	release2, ok, err := g.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestRedisGuard(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()
	a := NewRedisGuard(client, "menu:pipeline:lock", time.Minute)
	b := NewRedisGuard(client, "menu:pipeline:lock", time.Minute)

	release, ok, err := a.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("menu:pipeline:lock"))

	_, ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second instance must not run concurrently")

	release()
	assert.False(t, mr.Exists("menu:pipeline:lock"))

	releaseB, ok, err := b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	releaseB()
}

func TestRedisGuard_ReleaseDoesNotStealForeignLock(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()
	g := NewRedisGuard(client, "menu:pipeline:lock", time.Second)

	release, ok, err := g.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// The lock expired and another instance took it.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("menu:pipeline:lock", "someone-else"))

	release()
	got, err := mr.Get("menu:pipeline:lock")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisGuard_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	_, ok, err := NewRedisGuard(client, "k", 0).TryAcquire(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
