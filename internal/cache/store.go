// Package cache provides the key/value stores used to persist built asset
// metadata and rendered HTML fragments.
package cache

import (
	"context"
	"time"
)

// Store is a key/value store with per-entry TTL. Get reports a miss with
// found=false and a nil error. A ttl of zero means the entry never expires.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Purger is implemented by stores that keep expired entries until swept.
type Purger interface {
	// Purge removes expired entries and returns how many were removed.
	Purge(ctx context.Context) (int, error)
}

// Backend names a Store implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
	BackendNATS   Backend = "nats"
)

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(now, expiresAt time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}
