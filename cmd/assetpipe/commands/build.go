package commands

import (
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/observability"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Names []string `arg:"" optional:"" help:"Asset names to build (default: all registered)"`
	Force bool     `short:"f" help:"Discard cached build records and re-check every source"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx := g.context()
	rt, err := openRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	names := b.Names
	if len(names) == 0 {
		names = rt.manifest.Names()
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tASSET ID\tVERSION\tURL")
	var firstErr error
	failed := 0
	for _, name := range names {
		actx := observability.WithAssetName(ctx, name)
		if b.Force {
			rt.manager.Invalidate(actx, name)
		}
		built, err := rt.manager.Build(actx, name)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			observability.Error(actx, logger, "Asset build failed", logfields.Error(err))
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", built.Name, built.ID, built.Version, built.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	logger.Info("Build finished",
		logfields.Count(len(names)-failed),
		"failed", failed)
	return firstErr
}
