package commands

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	"git.home.luguber.info/inful/assetpipe/internal/builder"
	"git.home.luguber.info/inful/assetpipe/internal/cache"
	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/locator"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
	"git.home.luguber.info/inful/assetpipe/internal/storage"
)

// runtime is the wired pipeline shared by the build, resolve and serve
// commands.
type runtime struct {
	cfg      *config.Config
	manifest *manifest.Manifest
	store    cache.Store
	registry *prometheus.Registry
	manager  *locator.Manager
	logger   *slog.Logger
}

func openRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	mf := manifest.New(logger)
	var opts []asset.Option
	if !cfg.IsStrict() {
		opts = append(opts, asset.Lenient())
	}
	if err := manifest.Load(cfg.Manifest, mf, opts...); err != nil {
		return nil, err
	}

	cacheOpts := cfg.CacheOptions()
	cacheOpts.Logger = logger
	store, err := cache.Open(ctx, cacheOpts)
	if err != nil {
		return nil, err
	}
	c := cache.New(store, cfg.Cache.Namespace, cfg.Cache.TTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheusRecorder(registry)
	recorder.SetRegisteredAssets(mf.Len())

	b := builder.New(storage.NewOSFS(),
		builder.WithCache(c),
		builder.WithLogger(logger),
		builder.WithRecorder(recorder))
	manager := locator.NewManager(mf, b, cfg.BuilderSettings(),
		locator.WithCache(c),
		locator.WithLogger(logger),
		locator.WithRecorder(recorder))

	logger.Debug("Pipeline ready",
		logfields.Count(mf.Len()),
		slog.String("cache_backend", cfg.Cache.Backend),
		logfields.Path(cfg.Manifest))

	return &runtime{
		cfg:      cfg,
		manifest: mf,
		store:    store,
		registry: registry,
		manager:  manager,
		logger:   logger,
	}, nil
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Warn("Failed to close cache store", logfields.Error(err))
	}
}
