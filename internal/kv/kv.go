// Package kv abstracts the key-value store that backs the ruleset cache and
// the click counters: string get/set with TTL plus an atomic increment that
// installs a retention window on first write.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("kv: key not found")

// Store is the key-value dependency consumed by the cache and counter layers.
// Implementations must be safe for unbounded concurrent callers; in
// particular Incr must be atomic (no read-modify-write).
type Store interface {
	// Get returns the string value for key, or ErrMiss.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Incr atomically adds 1 to the integer counter at key and returns the
	// new value. The first increment creates the counter with the given
	// retention TTL; later increments leave the TTL untouched.
	Incr(ctx context.Context, key string, retention time.Duration) (int64, error)

	// GetInt64 reads the counter at key. Absent keys read as 0, never an error.
	GetInt64(ctx context.Context, key string) (int64, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// NewStore creates a key-value store based on the given type.
// Supported types: "memory", "redis"
func NewStore(ctx context.Context, kvType, redisAddr, redisPassword string, redisDB int) (Store, error) {
	switch kvType {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, redisAddr, redisPassword, redisDB)
	default:
		return nil, fmt.Errorf("unsupported kv store type: %s", kvType)
	}
}
