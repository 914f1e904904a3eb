//go:build integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(addr)
	require.NoError(t, err)

	rdb := redis.NewClient(opts)
	require.NoError(t, rdb.Ping(ctx).Err())
	t.Cleanup(func() { _ = rdb.Close() })

	return NewClientFromRedis(rdb, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestLocker(t *testing.T) {
	client := newTestClient(t)
	locker := NewLocker(client, "")
	ctx := context.Background()

	t.Run("acquire is exclusive", func(t *testing.T) {
		lock, err := locker.Acquire(ctx, "exclusive", time.Minute)
		require.NoError(t, err)

		_, err = locker.Acquire(ctx, "exclusive", time.Minute)
		assert.ErrorIs(t, err, ErrLockNotAcquired)

		require.NoError(t, lock.Release(ctx))

		again, err := locker.Acquire(ctx, "exclusive", time.Minute)
		require.NoError(t, err)
		require.NoError(t, again.Release(ctx))
	})

	t.Run("release after expiry reports not held", func(t *testing.T) {
		lock, err := locker.Acquire(ctx, "expiring", 50*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(150 * time.Millisecond)
		assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)
		assert.ErrorIs(t, lock.Extend(ctx, time.Second), ErrLockNotHeld)
	})

	t.Run("try acquire waits for release", func(t *testing.T) {
		lock, err := locker.Acquire(ctx, "waiting", time.Minute)
		require.NoError(t, err)

		go func() {
			time.Sleep(100 * time.Millisecond)
			_ = lock.Release(ctx)
		}()

		next, err := locker.TryAcquire(ctx, "waiting", time.Minute, 2*time.Second)
		require.NoError(t, err)
		require.NoError(t, next.Release(ctx))
	})

	t.Run("try acquire gives up", func(t *testing.T) {
		lock, err := locker.Acquire(ctx, "busy", time.Minute)
		require.NoError(t, err)
		defer lock.Release(ctx)

		_, err = locker.TryAcquire(ctx, "busy", time.Minute, 100*time.Millisecond)
		assert.ErrorIs(t, err, ErrLockNotAcquired)
	})

	t.Run("with lock keeps the lock alive", func(t *testing.T) {
		err := locker.WithLock(ctx, "held", 90*time.Millisecond, 0, func(ctx context.Context) error {
			time.Sleep(300 * time.Millisecond)
			_, err := locker.Acquire(ctx, "held", time.Minute)
			assert.ErrorIs(t, err, ErrLockNotAcquired)
			return nil
		})
		require.NoError(t, err)

		exists, err := client.Redis().Exists(ctx, defaultKeyPrefix+"held").Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	})

	t.Run("with lock returns fn error", func(t *testing.T) {
		boom := errors.New("boom")
		err := locker.WithLock(ctx, "failing", time.Minute, 0, func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	})
}
