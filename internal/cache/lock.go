package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by Acquire when another holder owns the lock.
var ErrLockHeld = errors.New("lock is held by another process")

// SeedLockKey guards concurrent seeder runs against the same database.
const SeedLockKey = "spaapi:lock:seed"

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is a single-holder lease stored under one Redis key.
type RunLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewRunLock prepares a lock on key. Nothing is sent to Redis until Acquire.
func NewRunLock(client *redis.Client, key string, ttl time.Duration) *RunLock {
	return &RunLock{
		client: client,
		key:    key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Key returns the Redis key guarding the lock.
func (l *RunLock) Key() string { return l.key }

// Acquire takes the lock or returns ErrLockHeld.
func (l *RunLock) Acquire(ctx context.Context) error {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Release frees the lock if this holder still owns it. It reports whether a
// key was actually removed.
func (l *RunLock) Release(ctx context.Context) (bool, error) {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return false, fmt.Errorf("release %s: %w", l.key, err)
	}
	return n == 1, nil
}
