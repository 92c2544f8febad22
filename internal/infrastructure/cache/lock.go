package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another worker owns the lock
var ErrLockHeld = errors.New("lock is held by another worker")

const lockPrefix = "catalog:lock:"

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// FileLock serializes runs per catalog file across workers
type FileLock struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewFileLock creates a lock manager. Locks expire after ttl if never released.
func NewFileLock(cache *RedisCache, ttl time.Duration) *FileLock {
	return &FileLock{cache: cache, ttl: ttl}
}

// Lease is a held lock
type Lease struct {
	key   string
	token string
	lock  *FileLock
}

// Acquire takes the lock for fileID or returns ErrLockHeld
func (l *FileLock) Acquire(ctx context.Context, fileID string) (*Lease, error) {
	key := lockPrefix + fileID
	token := uuid.NewString()

	ok, err := l.cache.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lease{key: key, token: token, lock: l}, nil
}

// Release frees the lock if it has not expired and been taken by someone else
func (le *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, le.lock.cache.client, []string{le.key}, le.token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", le.key, err)
	}
	return nil
}

// WithLock runs fn while holding the lock for fileID
func (l *FileLock) WithLock(ctx context.Context, fileID string, fn func(ctx context.Context) error) error {
	lease, err := l.Acquire(ctx, fileID)
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			l.cache.logger.Warn("failed to release file lock",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()))
		}
	}()
	return fn(ctx)
}
