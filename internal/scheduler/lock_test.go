package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lock := NewRedisLock(client)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, JobID, time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists(lockPrefix+JobID))

	_, err = lock.Acquire(ctx, JobID, time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	release()
	assert.False(t, mr.Exists(lockPrefix+JobID))

	again, err := lock.Acquire(ctx, JobID, time.Minute)
	require.NoError(t, err)
	again()
}

func TestRedisLockExpiresAndIgnoresStaleRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lock := NewRedisLock(client)
	ctx := context.Background()

	stale, err := lock.Acquire(ctx, JobID, time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := lock.Acquire(ctx, JobID, time.Minute)
	require.NoError(t, err)

	// the expired holder must not delete the new holder's key
	stale()
	assert.True(t, mr.Exists(lockPrefix+JobID))
	fresh()
	assert.False(t, mr.Exists(lockPrefix+JobID))
}

func TestRedisLockUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err = NewRedisLock(client).Acquire(context.Background(), JobID, time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockHeld)
}

func TestLocalLock(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "a", 0)
	require.NoError(t, err)
	_, err = lock.Acquire(ctx, "a", 0)
	assert.ErrorIs(t, err, ErrLockHeld)

	other, err := lock.Acquire(ctx, "b", 0)
	require.NoError(t, err)
	other()

	release()
	release()
	again, err := lock.Acquire(ctx, "a", 0)
	require.NoError(t, err)
	again()
}
