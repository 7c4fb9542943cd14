package cache

import (
	"context"
	"time"
)

// ScopedCache wraps a Cache with a key prefix so several tools can share one
// backend (typically Redis) without colliding.
//
//	shared, _ := NewRedisCache(ctx, "redis://localhost:6379/0")
//	c := Scoped(shared, "revdeps:")
type ScopedCache struct {
	inner  Cache
	prefix string
}

// Scoped returns c with every key prefixed. A nil inner cache is a NullCache.
func Scoped(inner Cache, prefix string) Cache {
	if inner == nil {
		inner = NewNullCache()
	}
	if prefix == "" {
		return inner
	}
	return &ScopedCache{inner: inner, prefix: prefix}
}

// Get retrieves a prefixed key.
func (c *ScopedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.inner.Get(ctx, c.prefix+key)
}

// Set stores a prefixed key.
func (c *ScopedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, c.prefix+key, data, ttl)
}

// Delete removes a prefixed key.
func (c *ScopedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, c.prefix+key)
}

// Close closes the wrapped cache.
func (c *ScopedCache) Close() error {
	return c.inner.Close()
}

var _ Cache = (*ScopedCache)(nil)
