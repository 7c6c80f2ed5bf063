package cleanup

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRunInProgress indicates another cleanup holds the run lock.
var ErrRunInProgress = errors.New("cleanup: run already in progress")

const lockKey = "cleanup:cart:lock"

// RunLock is a Redis guard ensuring a single cleanup runs at a time across
// worker replicas. A held lock makes the run a no-op rather than queueing;
// the next scheduled tick retries anyway.
type RunLock struct {
	R   *redis.Client
	TTL time.Duration
}

// WithLock executes fn while holding the run lock. The lock is released even
// when fn fails. Returns ErrRunInProgress when the lock is already held.
func (l RunLock) WithLock(ctx context.Context, fn func(context.Context) error) error {
	if l.R == nil {
		// no redis, no coordination: run anyway
		return fn(ctx)
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrRunInProgress
	}
	defer l.release(context.Background(), token)
	return fn(ctx)
}

func (l RunLock) release(ctx context.Context, token string) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
	_ = l.R.Eval(ctx, script, []string{lockKey}, token).Err()
}
