// Package builder turns asset configurations into published files and
// BuiltAsset records. Builds are content addressed: a second build of the
// same AssetID into the same build directory reuses the first unless a
// source changed.
package builder

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/golang/groupcache/singleflight"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	"git.home.luguber.info/inful/assetpipe/internal/cache"
	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
	"git.home.luguber.info/inful/assetpipe/internal/storage"
)

// Builder executes configurations. It is safe for concurrent use; concurrent
// builds of one AssetID share a single execution.
type Builder struct {
	fs       storage.FS
	cache    *cache.Cache
	logger   *slog.Logger
	recorder metrics.Recorder

	flight singleflight.Group

	mu   sync.RWMutex
	memo map[string]*asset.Built // buildDir + id
}

// Option configures a Builder.
type Option func(*Builder)

// WithCache persists built metadata so reuse survives restarts.
func WithCache(c *cache.Cache) Option {
	return func(b *Builder) { b.cache = c }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) { b.recorder = r }
}

// New creates a Builder over fsys.
func New(fsys storage.FS, opts ...Option) *Builder {
	b := &Builder{
		fs:       fsys,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		memo:     make(map[string]*asset.Built),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.recorder == nil {
		b.recorder = metrics.NoopRecorder{}
	}
	return b
}

func memoKey(buildDir, id string) string {
	return filepath.Clean(buildDir) + "\x00" + id
}

// CacheKey is the cache entry holding built metadata for id.
func (b *Builder) CacheKey(id string) string {
	if b.cache == nil {
		return "built." + id
	}
	return b.cache.Key("built", id)
}

// Build produces the BuiltAsset for cfg. explicitID, when non-empty, replaces
// the computed identity. Remote configurations never touch the filesystem.
func (b *Builder) Build(ctx context.Context, cfg asset.Configuration, settings Settings, explicitID string) (*asset.Built, error) {
	bp := cfg.Blueprint()
	id, err := bp.ResolveAssetID(explicitID)
	if err != nil {
		return nil, err
	}

	if remote, ok := cfg.(*asset.Remote); ok {
		return b.remote(remote, id)
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}

	v, err := b.flight.Do(memoKey(settings.BuildDir, id), func() (interface{}, error) {
		return b.local(ctx, cfg, settings, id)
	})
	if err != nil {
		b.recorder.IncBuildResult(metrics.BuildFailed)
		return nil, err
	}
	return v.(*asset.Built), nil
}

func (b *Builder) remote(cfg *asset.Remote, id string) (*asset.Built, error) {
	bp := cfg.Blueprint()
	built := &asset.Built{
		ID:        id,
		Name:      bp.Name(),
		Type:      bp.Type(),
		Kind:      bp.Kind(),
		Strategy:  asset.StrategyRemote,
		URL:       cfg.URL,
		Version:   id,
		Extension: cfg.Extension(),
		Preload:   bp.Preload(),
	}
	html, err := asset.RenderHTML(built, asset.RenderOptions{})
	if err != nil {
		return nil, renderFailed(built, err)
	}
	built.HTML = html
	b.recorder.IncBuildResult(metrics.BuildRemote)
	return built, nil
}

func (b *Builder) local(ctx context.Context, cfg asset.Configuration, settings Settings, id string) (*asset.Built, error) {
	start := time.Now()
	bp := cfg.Blueprint()
	sources := sourcesOf(cfg)
	if len(sources) == 0 {
		return nil, foundationerrors.BuildError("configuration has no local sources").
			WithContext("asset_name", bp.Name()).
			Build()
	}

	stamps := make([]asset.SourceStamp, 0, len(sources))
	for _, src := range sources {
		info, err := b.fs.Stat(settings.SourcePath(src))
		if err != nil {
			return nil, unreadable(bp.Name(), src, err)
		}
		stamps = append(stamps, asset.SourceStamp{Path: src, Size: info.Size, ModTime: info.ModTime.UnixNano()})
	}
	sourceMap := b.publishedSourceMap(cfg, settings)
	if sourceMap != "" {
		info, err := b.fs.Stat(settings.SourcePath(sourceMap))
		if err != nil {
			return nil, unreadable(bp.Name(), sourceMap, err)
		}
		stamps = append(stamps, asset.SourceStamp{Path: sourceMap, Size: info.Size, ModTime: info.ModTime.UnixNano()})
	}
	fingerprint := asset.Fingerprint(stamps)

	name := asset.OutputName(id, cfg.Extension())
	buildPath := filepath.Join(settings.BuildDir, name)
	publicPath := filepath.Join(settings.publicDir(), name)
	url := asset.PublicURL(settings.PublicURL, name)
	companions := companionNames(bp.Type(), settings, name, sourceMap != "")

	if prior := b.lookup(ctx, settings.BuildDir, id); prior != nil &&
		prior.Fingerprint == fingerprint &&
		prior.BuildPath == buildPath &&
		prior.AbsolutePath == publicPath &&
		prior.URL == url &&
		prior.Inline == bp.PrefersInline() &&
		prior.Preload == bp.Preload() &&
		slices.Equal(prior.MappedPaths, companions) &&
		b.fs.Exists(buildPath) && b.fs.Exists(publicPath) &&
		b.companionsExist(settings, companions) {
		b.recorder.IncBuildResult(metrics.BuildReused)
		b.logger.Debug("Reusing built asset",
			logfields.AssetName(bp.Name()),
			logfields.AssetID(id),
			logfields.Version(prior.Version))
		b.remember(settings.BuildDir, prior)
		return prior, nil
	}

	chunks := make([][]byte, 0, len(sources))
	for _, src := range sources {
		data, err := b.fs.ReadFile(settings.SourcePath(src))
		if err != nil {
			return nil, unreadable(bp.Name(), src, err)
		}
		chunks = append(chunks, data)
	}
	content := chunks[0]
	if len(chunks) > 1 {
		content = concat(chunks)
	}
	if cfg.Strategy() == asset.StrategyMapped {
		target := ""
		if sourceMap != "" {
			target = name + ".map"
		}
		content = relinkSourceMap(bp.Type(), content, target)
	}

	if err := b.write(bp.Name(), buildPath, content); err != nil {
		return nil, err
	}
	if settings.publishes() {
		if err := b.write(bp.Name(), publicPath, content); err != nil {
			return nil, err
		}
	}

	built := &asset.Built{
		ID:           id,
		Name:         bp.Name(),
		Type:         bp.Type(),
		Kind:         bp.Kind(),
		Strategy:     cfg.Strategy(),
		RelativePath: name,
		AbsolutePath: publicPath,
		BuildPath:    buildPath,
		URL:          url,
		Version:      asset.ContentVersion(content),
		Fingerprint:  fingerprint,
		Size:         int64(len(content)),
		Extension:    cfg.Extension(),
		Inline:       bp.PrefersInline(),
		Preload:      bp.Preload(),
	}

	if sourceMap != "" {
		data, err := b.fs.ReadFile(settings.SourcePath(sourceMap))
		if err != nil {
			return nil, unreadable(bp.Name(), sourceMap, err)
		}
		if err := b.companion(bp.Name(), settings, name+".map", data); err != nil {
			return nil, err
		}
		built.MappedPaths = append(built.MappedPaths, name+".map")
	}

	if bp.Type().IsText() {
		for _, enc := range settings.Precompress {
			data, err := compress(enc, content)
			if err != nil {
				return nil, foundationerrors.BuildError("precompression failed").
					WithCause(err).
					WithContext("asset_name", bp.Name()).
					WithContext("encoding", string(enc)).
					Build()
			}
			if data == nil {
				continue
			}
			if err := b.companion(bp.Name(), settings, name+enc.Suffix(), data); err != nil {
				return nil, err
			}
			built.MappedPaths = append(built.MappedPaths, name+enc.Suffix())
		}
	}

	html, err := asset.RenderHTML(built, asset.RenderOptions{Content: content})
	if err != nil {
		return nil, renderFailed(built, err)
	}
	built.HTML = html

	b.remember(settings.BuildDir, built)
	b.persist(ctx, built)

	elapsed := time.Since(start)
	b.recorder.ObserveBuildDuration(string(built.Type), elapsed)
	b.recorder.IncBuildResult(metrics.BuildBuilt)
	b.logger.Info("Built asset",
		logfields.AssetName(built.Name),
		logfields.AssetID(built.ID),
		logfields.AssetType(string(built.Type)),
		logfields.Strategy(string(built.Strategy)),
		logfields.Path(built.BuildPath),
		logfields.Version(built.Version),
		logfields.Duration(elapsed))
	return built, nil
}

// publishedSourceMap returns the declared source map of a mapped
// configuration when settings ask for source maps and the file exists.
func (b *Builder) publishedSourceMap(cfg asset.Configuration, settings Settings) string {
	mapped, ok := cfg.(*asset.Mapped)
	if !ok || !settings.SourceMaps || mapped.SourceMap == "" {
		return ""
	}
	if !b.fs.Exists(settings.SourcePath(mapped.SourceMap)) {
		return ""
	}
	return mapped.SourceMap
}

// companionNames lists, in write order, the companion files a build of name
// produces under settings.
func companionNames(t asset.Type, settings Settings, name string, withSourceMap bool) []string {
	var names []string
	if withSourceMap {
		names = append(names, name+".map")
	}
	if t.IsText() {
		for _, enc := range settings.Precompress {
			if suffix := enc.Suffix(); suffix != "" {
				names = append(names, name+suffix)
			}
		}
	}
	return names
}

func (b *Builder) companionsExist(settings Settings, names []string) bool {
	for _, n := range names {
		if !b.fs.Exists(filepath.Join(settings.BuildDir, n)) {
			return false
		}
		if settings.publishes() && !b.fs.Exists(filepath.Join(settings.PublicDir, n)) {
			return false
		}
	}
	return true
}

// companion writes a secondary output into the build and public directories.
func (b *Builder) companion(assetName string, settings Settings, name string, data []byte) error {
	if err := b.write(assetName, filepath.Join(settings.BuildDir, name), data); err != nil {
		return err
	}
	if settings.publishes() {
		return b.write(assetName, filepath.Join(settings.PublicDir, name), data)
	}
	return nil
}

func (b *Builder) write(assetName, path string, data []byte) error {
	if err := storage.WriteAtomic(b.fs, path, data); err != nil {
		return foundationerrors.BuildError("cannot write build output").
			WithCause(err).
			WithContext("asset_name", assetName).
			WithContext("path", path).
			Build()
	}
	return nil
}

func (b *Builder) lookup(ctx context.Context, buildDir, id string) *asset.Built {
	b.mu.RLock()
	built, ok := b.memo[memoKey(buildDir, id)]
	b.mu.RUnlock()
	if ok {
		return built
	}
	if b.cache == nil {
		return nil
	}

	var stored asset.Built
	found, err := b.cache.Load(ctx, b.CacheKey(id), &stored)
	b.recorder.IncCacheLookup("built", found)
	if err != nil {
		b.logger.Warn("Built asset cache read failed", logfields.AssetID(id), logfields.Error(err))
		return nil
	}
	if !found {
		return nil
	}
	return &stored
}

func (b *Builder) remember(buildDir string, built *asset.Built) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.memo[memoKey(buildDir, built.ID)] = built
}

func (b *Builder) persist(ctx context.Context, built *asset.Built) {
	if b.cache == nil {
		return
	}
	if err := b.cache.Save(ctx, b.CacheKey(built.ID), built); err != nil {
		b.logger.Warn("Built asset cache write failed", logfields.AssetID(built.ID), logfields.Error(err))
	}
}

// Forget drops remembered metadata for id in every build directory so the
// next Build re-checks the filesystem from scratch.
func (b *Builder) Forget(ctx context.Context, id string) {
	b.mu.Lock()
	for k, built := range b.memo {
		if built.ID == id {
			delete(b.memo, k)
		}
	}
	b.mu.Unlock()
	if b.cache != nil {
		if err := b.cache.Forget(ctx, b.CacheKey(id)); err != nil {
			b.logger.Warn("Built asset cache delete failed", logfields.AssetID(id), logfields.Error(err))
		}
	}
}

func unreadable(assetName, path string, err error) error {
	msg := "cannot read asset source"
	if storage.IsNotFound(err) {
		msg = "asset source does not exist"
	}
	return foundationerrors.BuildError(msg).
		WithCause(err).
		WithContext("asset_name", assetName).
		WithContext("path", path).
		Build()
}

func renderFailed(built *asset.Built, err error) error {
	return foundationerrors.BuildError("cannot render asset html").
		WithCause(err).
		WithContext("asset_name", built.Name).
		WithContext("asset_id", built.ID).
		Build()
}

// ReadOutput returns the published bytes of a local built asset.
func (b *Builder) ReadOutput(built *asset.Built) ([]byte, error) {
	if built == nil || built.AbsolutePath == "" {
		return nil, foundationerrors.NotFoundError("asset output").Build()
	}
	return b.fs.ReadFile(built.AbsolutePath)
}
