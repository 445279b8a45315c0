package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
)

// ListCmd implements the 'list' command.
type ListCmd struct {
	Format string `short:"f" help:"Output format (table|json|yaml)" enum:"table,json,yaml" default:"table"`
}

func (l *ListCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	mf := manifest.New(logger)
	var opts []asset.Option
	if !cfg.IsStrict() {
		opts = append(opts, asset.Lenient())
	}
	if err := manifest.Load(cfg.Manifest, mf, opts...); err != nil {
		return err
	}

	regs := make([]manifest.Registration, 0, mf.Len())
	for _, name := range mf.Names() {
		if reg, ok := mf.GetRegisteredConfiguration(name); ok {
			regs = append(regs, reg)
		}
	}

	out := g.out()
	switch l.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(regs)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer func() { _ = enc.Close() }()
		return enc.Encode(regs)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tSOURCE\tASSET ID\tSOURCES")
	for _, reg := range regs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", reg.Name, reg.Type, reg.Source, reg.AssetID, strings.Join(reg.Sources, ","))
	}
	return tw.Flush()
}
