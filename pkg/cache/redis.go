package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/observability"
)

// RedisCache stores entries in Redis with native key expiry.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the Redis instance named by url
// (redis://[user:pass@]host:port/db) and pings it once.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "connect to redis at %s", opts.Addr)
	}
	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value. redis.Nil is a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.Cache().OnCacheMiss(ctx, "redis")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	observability.Cache().OnCacheHit(ctx, "redis")
	return data, true, nil
}

// Set stores a value; a zero ttl keeps the key until deleted.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, "redis", len(data))
	return nil
}

// Delete removes a key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Close closes the client connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
