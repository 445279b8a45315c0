package cache

import (
	"context"
	"strings"
	"time"

	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// DefaultTTL applies when a Cache is created without one.
const DefaultTTL = 24 * time.Hour

// Cache scopes a Store under a namespace and applies a default lifetime.
// Values are CBOR encoded. Keys use dots as separators so every backend
// accepts them.
type Cache struct {
	store     Store
	namespace string
	ttl       time.Duration
}

// New wraps store. An empty namespace leaves keys unprefixed; a non-positive
// ttl selects DefaultTTL.
func New(store Store, namespace string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, namespace: strings.Trim(namespace, "."), ttl: ttl}
}

// Key joins parts under the namespace.
func (c *Cache) Key(parts ...string) string {
	if c.namespace == "" {
		return strings.Join(parts, ".")
	}
	return c.namespace + "." + strings.Join(parts, ".")
}

// TTL returns the default lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Store returns the underlying Store.
func (c *Cache) Store() Store { return c.store }

// Load decodes the entry at key into v. found is false on a miss.
func (c *Cache) Load(ctx context.Context, key string, v any) (bool, error) {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		return false, foundationerrors.WrapError(err, foundationerrors.CategoryCache, "cache read failed").
			WithContext("cache_key", key).
			Warning().
			Retryable().
			Build()
	}
	if !found {
		return false, nil
	}
	if err := Unmarshal(raw, v); err != nil {
		// undecodable entries are dropped and treated as misses
		_ = c.store.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// Save encodes v and stores it with the default lifetime.
func (c *Cache) Save(ctx context.Context, key string, v any) error {
	return c.SaveFor(ctx, key, v, c.ttl)
}

// SaveFor encodes v and stores it with an explicit lifetime.
func (c *Cache) SaveFor(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := Marshal(v)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "cache encode failed").
			WithContext("cache_key", key).
			Build()
	}
	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryCache, "cache write failed").
			WithContext("cache_key", key).
			Warning().
			Retryable().
			Build()
	}
	return nil
}

// Forget deletes key.
func (c *Cache) Forget(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryCache, "cache delete failed").
			WithContext("cache_key", key).
			Build()
	}
	return nil
}
