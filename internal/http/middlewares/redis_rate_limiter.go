package middlewares

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter shared by every API instance.
type RedisLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(rdb redis.Cmdable, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd

	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		// only sets the expiry when the key has none, i.e. on the first hit of a window
		pipe.ExpireNX(ctx, k, l.window)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	if incr.Val() > int64(l.limit) {
		retry := ttl.Val()
		if retry < 0 {
			retry = l.window
		}
		return false, retry, nil
	}

	return true, 0, nil
}
