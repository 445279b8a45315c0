package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) Invalidate(_ context.Context, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestHandleCoalescesEvents(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.css")
	b := filepath.Join(dir, "b.css")
	target := &recorder{}
	w, err := New(map[string][]string{
		a: {"app.bundle", "critical"},
		b: {"app.bundle"},
	}, target, WithDebounce(time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	ctx := context.Background()
	w.handle(ctx, fsnotify.Event{Name: a, Op: fsnotify.Write})
	w.handle(ctx, fsnotify.Event{Name: b, Op: fsnotify.Write})
	w.handle(ctx, fsnotify.Event{Name: filepath.Join(dir, "other.css"), Op: fsnotify.Write})
	w.handle(ctx, fsnotify.Event{Name: a, Op: fsnotify.Chmod})

	assert.Eventually(t, func() bool { return len(target.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"app.bundle", "critical"}, target.snapshot())
	assert.Equal(t, []string{dir}, w.Directories())
}

func TestWatcherInvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.js")
	require.NoError(t, os.WriteFile(src, []byte("v1"), 0o600))

	target := &recorder{}
	w, err := New(map[string][]string{src: {"app"}}, target, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(src, []byte("v2"), 0o600))
	assert.Eventually(t, func() bool {
		names := target.snapshot()
		return len(names) > 0 && names[0] == "app"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	w, err := New(nil, &recorder{})
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
