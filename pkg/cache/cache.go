// Package cache provides pluggable caching for graph-store metadata responses.
//
// The metadata store is queried once per (ecosystem, name, version) triple,
// and records change rarely, so responses are good cache candidates. Three
// backends are provided:
//   - NewNullCache: caching disabled (tests, dry runs)
//   - FileCache: file-based cache for CLI usage
//   - RedisCache: Redis-backed cache for multi-instance server deployments
//
// Keys are built with [Key], which hashes its parts so arbitrary package
// names never leak filesystem- or Redis-unsafe characters into a key.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys with per-entry TTL.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
