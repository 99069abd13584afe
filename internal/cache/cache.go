// Package cache is the short-TTL read-through cache in front of the ruleset
// repository. Freshness beats hit ratio here: edits to a ruleset must become
// visible within seconds, so entries live for ~10s. Confirmed-absent
// identifiers are cached too, as an explicit sentinel, so a burst of requests
// for an unknown stub costs one repository round-trip rather than one each.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goroute/internal/kv"
	"github.com/TimurManjosov/goroute/internal/rules"
	"github.com/TimurManjosov/goroute/internal/store"
	"github.com/TimurManjosov/goroute/internal/telemetry"
)

// DefaultTTL is how long positive and negative entries live.
const DefaultTTL = 10 * time.Second

// negativeSentinel marks a confirmed-absent identifier, distinguishable from
// "not yet cached".
const negativeSentinel = "empty"

// Cache resolves public identifiers (stub or numeric id) to immutable ruleset
// snapshots, hitting the repository only on a miss.
type Cache struct {
	kv    kv.Store
	store store.Store
	ttl   time.Duration
	log   zerolog.Logger
}

// New creates a ruleset cache. A non-positive ttl falls back to DefaultTTL.
func New(kvStore kv.Store, repo store.Store, ttl time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{kv: kvStore, store: repo, ttl: ttl, log: log}
}

func cacheKey(identifier string) string {
	return "ruleset_" + identifier
}

// Lookup returns the ruleset snapshot for identifier, or store.ErrNotFound.
// The returned value is decoded from the serialized snapshot on every call,
// so callers may use it without worrying about concurrent edits.
//
// A failing kv store degrades to direct repository reads; a failing
// repository on a miss surfaces as an error the caller should treat as
// NotFound for response purposes.
func (c *Cache) Lookup(ctx context.Context, identifier string) (*rules.RuleSet, error) {
	key := cacheKey(identifier)

	cached, err := c.kv.Get(ctx, key)
	switch {
	case err == nil && cached == negativeSentinel:
		telemetry.CacheLookups.WithLabelValues("negative").Inc()
		return nil, store.ErrNotFound
	case err == nil:
		var rs rules.RuleSet
		if jsonErr := json.Unmarshal([]byte(cached), &rs); jsonErr == nil {
			telemetry.CacheLookups.WithLabelValues("hit").Inc()
			return &rs, nil
		}
		// Corrupt entry: fall through and refetch.
		c.log.Warn().Str("identifier", identifier).Msg("discarding corrupt cache entry")
	case !errors.Is(err, kv.ErrMiss):
		c.log.Warn().Err(err).Str("identifier", identifier).Msg("cache store unavailable, reading through")
	}

	telemetry.CacheLookups.WithLabelValues("miss").Inc()
	rs, err := c.store.GetRuleSet(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		if setErr := c.kv.Set(ctx, key, negativeSentinel, c.ttl); setErr != nil {
			c.log.Warn().Err(setErr).Msg("failed to cache negative entry")
		}
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	blob, err := json.Marshal(rs)
	if err != nil {
		return nil, err
	}
	if setErr := c.kv.Set(ctx, key, string(blob), c.ttl); setErr != nil {
		c.log.Warn().Err(setErr).Msg("failed to cache ruleset snapshot")
	}

	// Return the snapshot the cache would serve, not the repository's copy.
	var snap rules.RuleSet
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Invalidate drops the cached entry for identifier. Used by the admin surface
// so edits become visible immediately instead of after TTL expiry.
func (c *Cache) Invalidate(ctx context.Context, identifier string) {
	if err := c.kv.Delete(ctx, cacheKey(identifier)); err != nil {
		c.log.Warn().Err(err).Str("identifier", identifier).Msg("failed to invalidate cache entry")
	}
}
