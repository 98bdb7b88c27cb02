package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when the lock is already owned by another caller.
var ErrHeld = errors.New("lock: already held")

// Locker provides a Redis-backed distributed lock. The checkout flow uses it
// as a single-flight gate: while one payment attempt for an order is in
// flight, a second attempt for the same order is refused instead of queued.
type Locker struct {
	R   *redis.Client
	TTL time.Duration
}

// Try runs fn while holding the lock for key. It acquires at most once; when
// the lock is already held ErrHeld is returned immediately without invoking
// fn. The lock is released when fn returns, and the TTL bounds the hold time
// if the process dies mid-flight.
func (l Locker) Try(ctx context.Context, key string, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrHeld
	}
	defer l.release(context.Background(), key, token)
	return fn(ctx)
}

func (l Locker) release(ctx context.Context, key, token string) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
	if err := l.R.Eval(ctx, script, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = l.R.Del(ctx, key).Err()
		}
	}
}
