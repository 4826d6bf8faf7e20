// Package cache provides byte-level caching backends for codeflow.
//
// The layout memo stores computed layouts here so that repeated runs of the
// CLI, or several server replicas, skip recomputation for snapshots they have
// already seen. Keys are derived from the snapshot content hash plus the
// options that influence the result (see [Keyer]).
//
// # Backends
//
//   - [NewMemoryCache]: bounded in-process LRU with per-entry TTL
//   - [NewFileCache]: one JSON file per entry, for the CLI
//   - [NewRedisCache]: shared cache for server deployments
//   - [NewNullCache]: never stores anything
//
// [Instrument] wraps any backend so hits, misses and writes are reported to
// the registered observability hooks.
package cache

import (
	"context"
	"time"
)

// Cache is a key/value store for serialized artifacts.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is reported as
	// (nil, false, nil), never as an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
