package cache

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/retry"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func exerciseStore(t *testing.T, store Store, c *clock) {
	t.Helper()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "a", []byte("one"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("two"), time.Minute))

	v, found, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "one", string(v))

	require.NoError(t, store.Set(ctx, "a", []byte("uno"), 0))
	v, _, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "uno", string(v))

	c.t = c.t.Add(2 * time.Minute)
	_, found, err = store.Get(ctx, "b")
	require.NoError(t, err)
	assert.False(t, found, "expired entry must miss")

	if p, ok := store.(Purger); ok {
		removed, err := p.Purge(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
	}

	require.NoError(t, store.Delete(ctx, "a"))
	_, found, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, store.Delete(ctx, "a"))
}

func TestMemoryStore(t *testing.T) {
	c := &clock{t: time.Unix(1700000000, 0)}
	store := NewMemoryStore()
	store.now = c.now
	exerciseStore(t, store, c)
	assert.Equal(t, 0, store.Len())
}

func TestSQLiteStore(t *testing.T) {
	c := &clock{t: time.Unix(1700000000, 0)}
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	store.now = c.now
	exerciseStore(t, store, c)
}

func TestSQLiteStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()
	v, found, err := second.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v", string(v))
}

func TestNATSEnvelope(t *testing.T) {
	exp := time.Unix(1700000000, 42)
	raw := encodeEnvelope([]byte("html"), exp)
	value, got, err := decodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "html", string(value))
	assert.True(t, got.Equal(exp))

	value, got, err = decodeEnvelope(encodeEnvelope([]byte("x"), time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, "x", string(value))
	assert.True(t, got.IsZero())

	_, _, err = decodeEnvelope([]byte{1, 2})
	assert.Error(t, err)
}

type record struct {
	ID      string `cbor:"1,keyasint"`
	Version string `cbor:"2,keyasint"`
}

func TestCacheNamespaceAndCodec(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := New(store, "assetpipe.", 0)

	assert.Equal(t, DefaultTTL, c.TTL())
	key := c.Key("built", "0123456789abcdef")
	assert.Equal(t, "assetpipe.built.0123456789abcdef", key)

	var out record
	found, err := c.Load(ctx, key, &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Save(ctx, key, record{ID: "0123456789abcdef", Version: "v1"}))
	found, err = c.Load(ctx, key, &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v1", out.Version)

	// corrupt entries are dropped
	require.NoError(t, store.Set(ctx, key, []byte{0xff, 0x00}, 0))
	found, err = c.Load(ctx, key, &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, store.Len())
}

func TestDeterministicEncoding(t *testing.T) {
	a, err := Marshal(map[string]string{"b": "2", "a": "1"})
	require.NoError(t, err)
	b, err := Marshal(map[string]string{"a": "1", "b": "2"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(ctx, Options{Backend: BackendSQLite, Path: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, Options{Backend: BackendSQLite})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))

	_, err = Open(ctx, Options{Backend: "redis"})
	require.Error(t, err)
	assert.True(t, foundationerrors.IsValidation(err))
}

func TestOpenNATSRetriesThenFails(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	_, err := Open(context.Background(), Options{
		Backend: BackendNATS,
		NATSURL: "nats://127.0.0.1:1",
		Bucket:  "assets",
		Retry:   retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 2),
		Logger:  logger,
	})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryCache))
	assert.Equal(t, 2, strings.Count(buf.String(), "NATS cache unavailable"))

	_, err = Open(context.Background(), Options{Backend: BackendNATS, NATSURL: "nats://127.0.0.1:1"})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("SQLite")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, b)

	b, err = ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, b)

	_, err = ParseBackend("redis")
	assert.Error(t, err)
}

type countingPurger struct{ calls int }

func (p *countingPurger) Purge(context.Context) (int, error) {
	p.calls++
	return 3, nil
}

func TestJanitor(t *testing.T) {
	p := &countingPurger{}
	j, err := NewJanitor(p, time.Hour, nil)
	require.NoError(t, err)
	j.RunOnce(context.Background())
	assert.Equal(t, 1, p.calls)
	j.Start()
	require.NoError(t, j.Stop())

	_, err = NewJanitor(p, 0, nil)
	assert.Error(t, err)
}
