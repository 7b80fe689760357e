package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("booking lock not acquired")
)

// Locker serializes turno creation for a given date so two concurrent
// requests cannot both pass the availability check.
type Locker interface {
	WithFechaLock(ctx context.Context, fecha string, fn func(ctx context.Context) error) error
}

type redisFechaLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFechaLocker creates a locker that uses a per-date Redis key
func NewRedisFechaLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisFechaLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisFechaLocker) WithFechaLock(ctx context.Context, fecha string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:fecha:%s", fecha)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire booking lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisFechaLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release booking lock: %w", err)
	}
	return nil
}
