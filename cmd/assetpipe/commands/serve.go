package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/assetpipe/internal/cache"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/server"
	"git.home.luguber.info/inful/assetpipe/internal/watch"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr    string `short:"a" help:"Listen address (overrides server.addr)"`
	NoWatch bool   `name:"no-watch" help:"Do not watch asset sources for changes"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(g.context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if purger, ok := rt.store.(cache.Purger); ok {
		janitor, err := cache.NewJanitor(purger, cfg.Cache.PurgeInterval, logger)
		if err != nil {
			return err
		}
		janitor.Start()
		defer func() {
			if err := janitor.Stop(); err != nil {
				logger.Warn("Cache janitor shutdown failed", logfields.Error(err))
			}
		}()
	}

	if cfg.Server.Watch && !s.NoWatch {
		stopWatch, err := startWatcher(ctx, rt)
		if err != nil {
			return err
		}
		defer stopWatch()
	}

	addr := cfg.Server.Addr
	if s.Addr != "" {
		addr = s.Addr
	}
	srv := server.New(rt.manager, server.WithLogger(logger), server.WithGatherer(rt.registry))
	return srv.ListenAndServe(ctx, addr)
}

func startWatcher(ctx context.Context, rt *runtime) (func(), error) {
	w, err := watch.New(rt.manager.SourceIndex(), rt.manager, watch.WithLogger(rt.logger))
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return nil, err
	}
	return func() {
		if err := w.Stop(); err != nil {
			rt.logger.Warn("Source watcher shutdown failed", logfields.Error(err))
		}
	}, nil
}
