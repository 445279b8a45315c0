// Package watch invalidates assets when their local source files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// Invalidator drops cached state for an asset name.
type Invalidator interface {
	Invalidate(ctx context.Context, name string)
}

// DefaultDebounce coalesces editor save bursts into one invalidation.
const DefaultDebounce = 250 * time.Millisecond

// Watcher maps source paths to asset names and invalidates those names when
// a source is written, created, renamed or removed.
type Watcher struct {
	target   Invalidator
	index    map[string][]string // absolute source path -> names
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	pending  map[string]struct{}
	timer    *time.Timer
	stopChan chan struct{}
	stopped  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a Watcher for index (source path -> asset names).
func New(index map[string][]string, target Invalidator, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		target:   target,
		index:    make(map[string][]string, len(index)),
		watcher:  fw,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		pending:  make(map[string]struct{}),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	for path, names := range index {
		abs, err := filepath.Abs(path)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to resolve source path %s: %w", path, err)
		}
		w.index[abs] = append(w.index[abs], names...)
	}
	return w, nil
}

// Directories returns the sorted set of directories holding watched sources.
func (w *Watcher) Directories() []string {
	seen := make(map[string]struct{})
	for path := range w.index {
		seen[filepath.Dir(path)] = struct{}{}
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Start watches the source directories until ctx ends or Stop is called.
// Directories are watched rather than files so atomic replace-on-save
// editors keep being tracked.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.Directories() {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch source directory %s: %w", dir, err)
		}
	}
	w.logger.Info("Watching asset sources", slog.Int("directories", len(w.Directories())), slog.Int("sources", len(w.index)))
	go w.loop(ctx)
	return nil
}

// Stop ends watching and drops any pending invalidation.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopChan)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Source watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}
	names, ok := w.index[filepath.Clean(event.Name)]
	if !ok {
		return
	}
	w.logger.Debug("Asset source changed", logfields.Path(event.Name), slog.String("op", event.Op.String()))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	for _, n := range names {
		w.pending[n] = struct{}{}
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.flush(ctx) })
}

// flush invalidates every pending name once.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	names := make([]string, 0, len(w.pending))
	for n := range w.pending {
		names = append(names, n)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	sort.Strings(names)
	for _, n := range names {
		w.target.Invalidate(ctx, n)
		w.logger.Info("Invalidated asset after source change", logfields.AssetName(n))
	}
}
