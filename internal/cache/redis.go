package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares list pages between API replicas.
// Errors are logged and treated as misses; the database stays the source of truth.
type RedisCache struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	genKey string
	log    *slog.Logger
}

// setIfGeneration writes KEYS[2] only while the counter at KEYS[1] still reads ARGV[1].
var setIfGeneration = redis.NewScript(`
local cur = redis.call("GET", KEYS[1]) or "0"
if cur ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

func NewRedis(rdb redis.UniversalClient, ttl time.Duration, log *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisCache{rdb: rdb, ttl: ttl, genKey: "cache:generation", log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WarnContext(ctx, "cache get failed", "key", key, "err", err)
		}
		return nil, false
	}
	return val, true
}

// Generation is shared by every replica; a read error yields a value no fill can match.
func (c *RedisCache) Generation(ctx context.Context) uint64 {
	gen, err := c.rdb.Get(ctx, c.genKey).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0
		}
		c.log.WarnContext(ctx, "cache generation read failed", "err", err)
		return ^uint64(0)
	}
	return gen
}

func (c *RedisCache) SetIfGeneration(ctx context.Context, key string, val []byte, gen uint64) bool {
	stored, err := setIfGeneration.Run(ctx, c.rdb,
		[]string{c.genKey, key},
		strconv.FormatUint(gen, 10), val, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.log.WarnContext(ctx, "cache set failed", "key", key, "err", err)
		return false
	}
	return stored == 1
}

// ClearPrefix walks the keyspace with SCAN so large caches never block redis.
func (c *RedisCache) ClearPrefix(ctx context.Context, prefix string) {
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 200).Iterator()

	batch := make([]string, 0, 200)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
			c.log.WarnContext(ctx, "cache clear failed", "prefix", prefix, "err", err)
		}
		batch = batch[:0]
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			flush()
		}
	}
	flush()

	if err := iter.Err(); err != nil {
		c.log.WarnContext(ctx, "cache scan failed", "prefix", prefix, "err", err)
	}

	// bumped after the sweep so a prefix that covers genKey cannot reset it
	if err := c.rdb.Incr(ctx, c.genKey).Err(); err != nil {
		c.log.WarnContext(ctx, "cache generation bump failed", "err", err)
	}
}
