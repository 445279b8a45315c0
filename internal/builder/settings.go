package builder

import (
	"path/filepath"

	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Settings are the per-call inputs that place build output.
type Settings struct {
	// BuildDir receives {id}.{ext}.
	BuildDir string
	// PublicDir receives a copy under the same file name. Empty publishes
	// from BuildDir directly.
	PublicDir string
	// PublicURL prefixes the relative path in URLs and HTML, e.g. "/assets".
	PublicURL string
	// Precompress lists companion encodings written next to text outputs.
	Precompress []Encoding
	// SourceMaps copies {source}.map for mapped styles and scripts.
	SourceMaps bool
	// SourceRoot anchors relative source paths. Identity always uses the
	// declared path, so moving the tree does not change AssetIDs.
	SourceRoot string
}

func (s Settings) validate() error {
	if s.BuildDir == "" {
		return foundationerrors.BuildError("build directory is not configured").Build()
	}
	return nil
}

func (s Settings) publicDir() string {
	if s.PublicDir == "" {
		return s.BuildDir
	}
	return s.PublicDir
}

func (s Settings) publishes() bool {
	return s.PublicDir != "" && filepath.Clean(s.PublicDir) != filepath.Clean(s.BuildDir)
}

// SourcePath resolves a declared source against SourceRoot.
func (s Settings) SourcePath(src string) string {
	if s.SourceRoot == "" || filepath.IsAbs(src) {
		return src
	}
	return filepath.Join(s.SourceRoot, src)
}
