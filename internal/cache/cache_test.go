package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"spaapi/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions("redis://:secret@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = ParseOptions(" localhost:6379 ")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	_, err = ParseOptions("")
	assert.Error(t, err)

	_, err = ParseOptions("redis://cache:6379/notadb")
	assert.Error(t, err)
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := NewClient(context.Background(), addr)
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestRunLock_AcquireRelease(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	first := NewRunLock(client, SeedLockKey, time.Minute)
	second := NewRunLock(client, SeedLockKey, time.Minute)

	require.NoError(t, first.Acquire(ctx))
	assert.True(t, mr.Exists(SeedLockKey))
	assert.Equal(t, time.Minute, mr.TTL(SeedLockKey))

	err := second.Acquire(ctx)
	assert.True(t, errors.Is(err, ErrLockHeld))

	released, err := second.Release(ctx)
	require.NoError(t, err)
	assert.False(t, released, "a non-holder must not release the lock")
	assert.True(t, mr.Exists(SeedLockKey))

	released, err = first.Release(ctx)
	require.NoError(t, err)
	assert.True(t, released)
	assert.False(t, mr.Exists(SeedLockKey))

	require.NoError(t, second.Acquire(ctx))
}

func TestRunLock_Expiry(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	stale := NewRunLock(client, SeedLockKey, time.Second)
	require.NoError(t, stale.Acquire(ctx))

	mr.FastForward(2 * time.Second)

	fresh := NewRunLock(client, SeedLockKey, time.Minute)
	require.NoError(t, fresh.Acquire(ctx))

	released, err := stale.Release(ctx)
	require.NoError(t, err)
	assert.False(t, released, "an expired holder must not free the new lease")
	assert.True(t, mr.Exists(SeedLockKey))
}

func TestMetricsHook_CountsErrors(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	before := testutil.ToFloat64(observability.RedisErrors.WithLabelValues("get"))

	// redis.Nil is a miss, not an error.
	_, err := client.Get(ctx, "missing").Result()
	require.ErrorIs(t, err, redis.Nil)
	assert.Equal(t, before, testutil.ToFloat64(observability.RedisErrors.WithLabelValues("get")))

	mr.SetError("READONLY forced failure")
	_, err = client.Get(ctx, "missing").Result()
	require.Error(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(observability.RedisErrors.WithLabelValues("get")))
}
