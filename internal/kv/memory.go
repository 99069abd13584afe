package kv

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store backed by patrickmn/go-cache.
// Suitable for development, testing, and single-instance deployments.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a new in-memory store. Expired entries are swept
// every minute; reads treat expired entries as absent regardless.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return "", ErrMiss
	}
	s, ok := v.(string)
	if !ok {
		return "", ErrMiss
	}
	return s, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *MemoryStore) Incr(ctx context.Context, key string, retention time.Duration) (int64, error) {
	// Add only succeeds for an absent key, so concurrent first increments
	// race safely: exactly one zero-init wins, every IncrementInt64 lands.
	_ = m.cache.Add(key, int64(0), retention)
	return m.cache.IncrementInt64(key, 1)
}

func (m *MemoryStore) GetInt64(ctx context.Context, key string) (int64, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return 0, nil
	}
	n, ok := v.(int64)
	if !ok {
		return 0, nil
	}
	return n, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
