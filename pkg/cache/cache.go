// Package cache provides the verdict cache used by the scanner.
//
// A verdict records whether a given package version references the target
// library, so repeated scans skip downloads for packages already inspected.
// Backends implement [Cache]:
//
//   - [FileCache]: one JSON file per key under a local directory (CLI default)
//   - [RedisCache]: a shared Redis instance, for several scanners at once
//   - [NullCache]: never stores anything (--no-cache)
//
// Keys are built with [VerdictKey] and optionally namespaced with [Scoped].
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored value and true, or nil and false on a miss.
	// Expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
