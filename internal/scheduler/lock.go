package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by RunLock.Acquire when another run owns the key.
var ErrLockHeld = errors.New("run lock held")

// RunLock serializes batch runs keyed by job id.
type RunLock interface {
	// Acquire returns a release func on success. ttl bounds how long a
	// crashed holder can keep the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

const lockPrefix = "lms:runlock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type redisLock struct {
	client *redis.Client
}

// NewRedisLock returns a lock backed by SET NX PX.
func NewRedisLock(client *redis.Client) RunLock {
	return &redisLock{client: client}
}

func (l *redisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	redisKey := lockPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
	}, nil
}

type localLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLock returns an in-process lock.
func NewLocalLock() RunLock {
	return &localLock{locks: make(map[string]*sync.Mutex)}
}

func (l *localLock) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, ErrLockHeld
	}
	var once sync.Once
	return func() { once.Do(m.Unlock) }, nil
}
