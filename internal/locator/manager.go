// Package locator is the request-facing side of the asset pipeline. A
// Manager looks asset names up in the manifest, builds them on demand and
// caches the rendered HTML; a Session collects the names one request needs.
package locator

import (
	"context"
	"log/slog"
	"sort"

	"github.com/golang/groupcache/singleflight"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	"git.home.luguber.info/inful/assetpipe/internal/builder"
	"git.home.luguber.info/inful/assetpipe/internal/cache"
	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
	"git.home.luguber.info/inful/assetpipe/internal/observability"
)

// Manager resolves asset names to built assets and HTML. It is safe for
// concurrent use and shared by all sessions.
type Manager struct {
	manifest *manifest.Manifest
	builder  *builder.Builder
	cache    *cache.Cache
	settings builder.Settings
	logger   *slog.Logger
	recorder metrics.Recorder

	flight singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithCache stores rendered HTML per name. Without it every resolve builds
// (builds themselves are still reused by the Builder).
func WithCache(c *cache.Cache) Option {
	return func(m *Manager) { m.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// NewManager wires a Manager.
func NewManager(mf *manifest.Manifest, b *builder.Builder, settings builder.Settings, opts ...Option) *Manager {
	m := &Manager{
		manifest: mf,
		builder:  b,
		settings: settings,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.recorder == nil {
		m.recorder = metrics.NoopRecorder{}
	}
	return m
}

// Manifest returns the registry the Manager reads from.
func (m *Manager) Manifest() *manifest.Manifest { return m.manifest }

// Settings returns the build settings.
func (m *Manager) Settings() builder.Settings { return m.settings }

// HasAsset reports whether name is registered.
func (m *Manager) HasAsset(name string) bool {
	return m.manifest.HasAsset(name)
}

// GetAsset returns the built asset for name, building it if needed. Unknown
// names log one warning and return nil; build failures log one error and
// return nil.
func (m *Manager) GetAsset(ctx context.Context, name string) *asset.Built {
	built, err := m.getAsset(ctx, name)
	if err != nil {
		m.report(ctx, name, err)
		return nil
	}
	return built
}

// Build is GetAsset with the error returned instead of logged.
func (m *Manager) Build(ctx context.Context, name string) (*asset.Built, error) {
	return m.getAsset(ctx, name)
}

func (m *Manager) getAsset(ctx context.Context, name string) (*asset.Built, error) {
	v, err := m.flight.Do(name, func() (interface{}, error) {
		cfg, err := m.manifest.Resolve(name)
		if err != nil {
			return nil, err
		}
		built, err := m.builder.Build(ctx, cfg, m.settings, "")
		if err != nil {
			return nil, err
		}
		m.manifest.RecordResolved(name, built)
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*asset.Built), nil
}

func (m *Manager) report(ctx context.Context, name string, err error) {
	ctx = observability.WithAssetName(ctx, name)
	if foundationerrors.HasCategory(err, foundationerrors.CategoryNotFound) {
		m.recorder.IncResolveResult(metrics.ResolveUnknown)
		observability.Warn(ctx, m.logger, "Unknown asset requested")
		return
	}
	m.recorder.IncResolveResult(metrics.ResolveFailed)
	observability.Error(ctx, m.logger, "Asset build failed", logfields.Error(err))
}

// GetAssets returns built assets for names, skipping any that fail.
func (m *Manager) GetAssets(ctx context.Context, names ...string) []*asset.Built {
	out := make([]*asset.Built, 0, len(names))
	for _, name := range names {
		if built := m.GetAsset(ctx, name); built != nil {
			out = append(out, built)
		}
	}
	return out
}

// RenderAsset renders name with extra HTML attributes. The second result is
// false when the asset is unknown or failed to build.
func (m *Manager) RenderAsset(ctx context.Context, name string, attributes map[string]string) (string, bool) {
	built := m.GetAsset(ctx, name)
	if built == nil {
		return "", false
	}
	if len(attributes) == 0 {
		return built.HTML, true
	}
	var content []byte
	if built.Inline && built.AbsolutePath != "" {
		content, _ = m.builder.ReadOutput(built)
	}
	html, err := asset.RenderHTML(built, asset.RenderOptions{Content: content, Attributes: attributes})
	if err != nil {
		m.report(ctx, name, err)
		return "", false
	}
	return html, true
}

func (m *Manager) resolvedKey(name string) string {
	if m.cache == nil {
		return "resolved." + name
	}
	return m.cache.Key("resolved", name)
}

// Resolve returns the HTML for each name. With cached set, stored HTML is
// returned without building; misses are built and stored. Names that are
// unknown or fail to build are omitted.
func (m *Manager) Resolve(ctx context.Context, names []string, cached bool) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if html, ok := m.resolveOne(ctx, name, cached); ok {
			out[name] = html
		}
	}
	return out
}

func (m *Manager) resolveOne(ctx context.Context, name string, cached bool) (string, bool) {
	if cached && m.cache != nil {
		if built := m.loadResolved(ctx, name); built != nil {
			m.manifest.RecordResolved(name, built)
			m.recorder.IncResolveResult(metrics.ResolveCached)
			return built.HTML, true
		}
	}

	built := m.GetAsset(ctx, name)
	if built == nil {
		return "", false
	}
	m.recorder.IncResolveResult(metrics.ResolveBuilt)
	if m.cache != nil {
		if err := m.cache.Save(ctx, m.resolvedKey(name), built); err != nil {
			m.logger.Warn("Resolved asset cache write failed", logfields.AssetName(name), logfields.Error(err))
		}
	}
	return built.HTML, true
}

// loadResolved returns the stored build for name when it still belongs to
// the registered blueprint.
func (m *Manager) loadResolved(ctx context.Context, name string) *asset.Built {
	var built asset.Built
	found, err := m.cache.Load(ctx, m.resolvedKey(name), &built)
	if err != nil {
		m.logger.Warn("Resolved asset cache read failed", logfields.AssetName(name), logfields.Error(err))
		found = false
	}
	if found {
		bp := m.manifest.GetAssetBlueprint(name)
		if bp == nil {
			found = false
		} else if id, err := bp.ResolveAssetID(""); err != nil || id != built.ID {
			found = false
		}
	}
	m.recorder.IncCacheLookup("resolved", found)
	if !found {
		return nil
	}
	return &built
}

// Invalidate forgets everything cached for name so the next request
// re-checks its sources.
func (m *Manager) Invalidate(ctx context.Context, name string) {
	if m.cache != nil {
		if err := m.cache.Forget(ctx, m.resolvedKey(name)); err != nil {
			m.logger.Warn("Resolved asset cache delete failed", logfields.AssetName(name), logfields.Error(err))
		}
	}
	if built := m.manifest.GetResolved(name); built != nil {
		m.builder.Forget(ctx, built.ID)
	} else if bp := m.manifest.GetAssetBlueprint(name); bp != nil {
		if id, err := bp.ResolveAssetID(""); err == nil {
			m.builder.Forget(ctx, id)
		}
	}
	m.manifest.ClearResolved(name)
	m.logger.Debug("Invalidated asset", logfields.AssetName(name))
}

// SourceIndex maps each local source path to the names that read it.
func (m *Manager) SourceIndex() map[string][]string {
	index := make(map[string][]string)
	for _, bp := range m.manifest.GetRegisteredAssets() {
		if !bp.Kind().IsLocal() {
			continue
		}
		for _, src := range bp.Sources() {
			path := m.settings.SourcePath(src)
			index[path] = append(index[path], bp.Name())
		}
	}
	for _, names := range index {
		sort.Strings(names)
	}
	return index
}
