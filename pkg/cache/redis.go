package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// setIfUnchanged stores KEYS[1] only while the generation key KEYS[2]
// still holds ARGV[1]. A missing generation key counts as "0".
var setIfUnchanged = redis.NewScript(`
	local gen = redis.call('GET', KEYS[2])
	if not gen then gen = '0' end
	if gen ~= ARGV[1] then
		return 0
	end
	if tonumber(ARGV[3]) > 0 then
		redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	else
		redis.call('SET', KEYS[1], ARGV[2])
	end
	return 1
`)

type redisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedis wraps a redis client as a Cache. Redis failures degrade to
// misses and dropped writes; they are logged, never surfaced.
func NewRedis(client *redis.Client, logger *zap.Logger) Cache {
	return &redisCache{client: client, logger: logger}
}

func genKey(key string) string {
	return key + ":gen"
}

func (c *redisCache) Get(ctx context.Context, key string) (string, uint64, bool) {
	results, err := c.client.MGet(ctx, key, genKey(key)).Result()
	if err != nil {
		c.logger.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		return "", 0, false
	}

	var gen uint64
	if raw, ok := results[1].(string); ok {
		gen, _ = strconv.ParseUint(raw, 10, 64)
	}

	value, ok := results[0].(string)
	if !ok {
		return "", gen, false
	}

	return value, gen, true
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration, gen uint64) bool {
	stored, err := setIfUnchanged.Run(
		ctx,
		c.client,
		[]string{key, genKey(key)},
		strconv.FormatUint(gen, 10),
		value,
		ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.logger.Debug("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}

	return stored == 1
}

func (c *redisCache) Invalidate(ctx context.Context, key string) error {
	// Bump the generation before deleting the entry so an in-flight Set
	// loses even if it lands between the two commands.
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, genKey(key))
	pipe.Del(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
		return err
	}

	return nil
}
