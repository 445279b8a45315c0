package cache

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/foundation/normalization"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/retry"
)

// Options selects and configures a backend.
type Options struct {
	Backend Backend
	// Path is the SQLite database file.
	Path    string
	NATSURL string
	Bucket  string
	TTL     time.Duration
	// Retry governs connection attempts to network backends. The zero
	// value makes a single attempt.
	Retry  retry.Policy
	Logger *slog.Logger
}

var backendNormalizer = normalization.NewEnumNormalizer("cache backend", map[string]Backend{
	"memory": BackendMemory,
	"sqlite": BackendSQLite,
	"nats":   BackendNATS,
}, BackendMemory)

// ParseBackend validates a backend name.
func ParseBackend(raw string) (Backend, error) {
	if raw == "" {
		return BackendMemory, nil
	}
	return backendNormalizer.Parse(raw, true)
}

// Open constructs the Store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendSQLite:
		path := opts.Path
		if path == "" {
			return nil, foundationerrors.ConfigError("sqlite cache requires cache.path").Build()
		}
		if path != ":memory:" {
			path = filepath.Clean(path)
		}
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryCache, "open sqlite cache").
				WithContext("path", path).
				Build()
		}
		return store, nil
	case BackendNATS:
		if opts.Bucket == "" {
			return nil, foundationerrors.ConfigError("nats cache requires cache.bucket").Build()
		}
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		var store *NATSStore
		err := opts.Retry.Do(ctx, func() error {
			s, err := NewNATSStore(ctx, NATSConfig{URL: opts.NATSURL, Bucket: opts.Bucket, TTL: opts.TTL})
			if err != nil {
				return foundationerrors.WrapError(err, foundationerrors.CategoryCache, "open nats cache").
					WithContext("url", opts.NATSURL).
					Retryable().
					Build()
			}
			store = s
			return nil
		}, func(attempt int, delay time.Duration, err error) {
			logger.Warn("NATS cache unavailable, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				logfields.Error(err))
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, foundationerrors.InvalidEnumValue("cache backend", string(opts.Backend), backendNormalizer.ValidValues()).Build()
	}
}
