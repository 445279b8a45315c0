package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSConfig configures a JetStream key/value backed Store.
type NATSConfig struct {
	URL    string
	Bucket string
	// TTL is the bucket-wide maximum age applied by the server.
	TTL time.Duration
}

// NATSStore keeps entries in a JetStream KV bucket so several processes share
// one resolved-asset cache. Per-entry TTLs are enforced on read from an
// expiry header stored with each value.
type NATSStore struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
	now  func() time.Time
}

// NewNATSStore connects to NATS and opens or creates the bucket.
func NewNATSStore(ctx context.Context, cfg NATSConfig) (*NATSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("nats cache bucket is required")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := openBucket(ctx, js, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("NATS cache initialized", "url", cfg.URL, "bucket", cfg.Bucket)
	return &NATSStore{conn: conn, kv: kv, now: time.Now}, nil
}

func openBucket(ctx context.Context, js jetstream.JetStream, cfg NATSConfig) (jetstream.KeyValue, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if kv, err := js.KeyValue(ctx, cfg.Bucket); err == nil {
		return kv, nil
	}

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "Asset pipeline cache",
		MaxBytes:    100 * 1024 * 1024,
		History:     1,
		TTL:         cfg.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create KV bucket: %w", err)
	}
	slog.Info("Created KV bucket for asset cache", "bucket", cfg.Bucket)
	return kv, nil
}

// encodeEnvelope prefixes value with its expiry in UnixNano (0 = never).
func encodeEnvelope(value []byte, expiresAt time.Time) []byte {
	out := make([]byte, 8+len(value))
	if !expiresAt.IsZero() {
		binary.BigEndian.PutUint64(out[:8], uint64(expiresAt.UnixNano()))
	}
	copy(out[8:], value)
	return out
}

func decodeEnvelope(raw []byte) ([]byte, time.Time, error) {
	if len(raw) < 8 {
		return nil, time.Time{}, fmt.Errorf("cache envelope too short: %d bytes", len(raw))
	}
	var expiresAt time.Time
	if n := binary.BigEndian.Uint64(raw[:8]); n != 0 {
		expiresAt = time.Unix(0, int64(n))
	}
	return raw[8:], expiresAt, nil
}

func (s *NATSStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	value, expiresAt, err := decodeEnvelope(entry.Value())
	if err != nil {
		return nil, false, err
	}
	if expired(s.now(), expiresAt) {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *NATSStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if _, err := s.kv.Put(ctx, key, encodeEnvelope(value, expiry(s.now(), ttl))); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

func (s *NATSStore) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (s *NATSStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
