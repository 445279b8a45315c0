package commands

import (
	"fmt"
	"strings"

	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// ResolveCmd implements the 'resolve' command: it enqueues the names into a
// session and prints the resolved HTML in request order.
type ResolveCmd struct {
	Names   []string `arg:"" help:"Asset names to resolve"`
	NoCache bool     `name:"no-cache" help:"Bypass the resolved-HTML cache"`
}

func (r *ResolveCmd) Run(g *Global, root *CLI) error {
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

	session := rt.manager.NewSession()
	session.EnqueueAsset(r.Names...)
	resolved := session.ResolveEnqueuedAssets(ctx, !r.NoCache)

	var missing []string
	out := g.out()
	for _, name := range session.GetEnqueuedAssets() {
		html, ok := resolved[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		fmt.Fprintln(out, html)
	}
	if len(missing) > 0 {
		return foundationerrors.NotFoundError("assets "+strings.Join(missing, ", ")).
			WithContext("missing", missing).
			Build()
	}
	return nil
}
