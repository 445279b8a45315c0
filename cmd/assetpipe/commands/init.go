package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	"git.home.luguber.info/inful/assetpipe/internal/config"
	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing files"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	out := g.out()
	fmt.Fprintf(out, "Writing configuration to %s\n", root.Config)
	if err := config.Init(root.Config, i.Force); err != nil {
		return err
	}

	manifestPath := filepath.Join(filepath.Dir(root.Config), config.DefaultManifest)
	if _, err := os.Stat(manifestPath); err == nil && !i.Force {
		fmt.Fprintf(out, "Keeping existing manifest %s\n", manifestPath)
		return nil
	}
	fmt.Fprintf(out, "Writing example manifest to %s\n", manifestPath)
	return writeExampleManifest(manifestPath)
}

func writeExampleManifest(path string) error {
	inline := true
	preload := true
	f := manifest.File{Assets: []asset.Record{
		{Name: "site.styles", Sources: []string{"assets/css/reset.css", "assets/css/site.css"}},
		{Name: "site.scripts", Sources: []string{"assets/js/app.js"}, Preload: &preload},
		{Name: "critical.styles", Sources: []string{"assets/css/critical.css"}, PrefersInline: &inline},
		{Name: "htmx", Sources: []string{"https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"}, Source: string(asset.SourceCDN)},
	}}
	data, err := f.Encode()
	if err != nil {
		return foundationerrors.InternalError("failed to encode example manifest").WithCause(err).Build()
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return foundationerrors.FileSystemError("failed to write example manifest").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return nil
}
