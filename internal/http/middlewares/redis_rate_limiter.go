package middlewares

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter shares fixed windows across API replicas: INCR a per-window
// key and let it expire with the window.
type RedisRateLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	prefix string
}

func NewRedisRateLimiter(rdb redis.Cmdable, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: "coter:ratelimit:",
	}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := rl.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd

	_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, rl.window)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	if incr.Val() > int64(rl.limit) {
		retry := ttl.Val()
		if retry <= 0 {
			retry = rl.window
		}
		return false, retry, nil
	}

	return true, 0, nil
}
