package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mcoot/acctstore/internal/storage"
)

// ErrLockNotHeld is returned by unlock when the lock expired or was taken over
var ErrLockNotHeld = errors.New("directory lock no longer held")

// releaseScript deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a Redis lock shared by every process using the same root
type Locker struct {
	client     *redis.Client
	key        string
	ttl        time.Duration
	retryDelay time.Duration
}

// NewLocker creates a lock for the directory namespace root
func NewLocker(client *redis.Client, root string, cfg Config) *Locker {
	defaults := DefaultConfig()
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaults.LockTTL
	}
	if cfg.LockRetryDelay <= 0 {
		cfg.LockRetryDelay = defaults.LockRetryDelay
	}
	return &Locker{
		client:     client,
		key:        lockKey(root),
		ttl:        cfg.LockTTL,
		retryDelay: cfg.LockRetryDelay,
	}
}

// Ensure Locker implements the interface
var _ storage.Locker = (*Locker)(nil)

// Lock polls until the lock is acquired or ctx is done. The lock expires
// after the configured TTL if the holder never unlocks.
func (l *Locker) Lock(ctx context.Context) (func() error, error) {
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() error { return l.release(token) }, nil
		}

		timer := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, context.Cause(ctx)
		case <-timer.C:
		}
	}
}

func (l *Locker) release(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
