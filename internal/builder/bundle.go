package builder

import (
	"bytes"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
)

// concat joins source chunks in order. A newline is inserted after any
// non-empty chunk that does not already end with one, so bundled files
// never fuse the last rule of one source with the first of the next.
func concat(chunks [][]byte) []byte {
	size := 0
	for _, c := range chunks {
		size += len(c) + 1
	}
	var buf bytes.Buffer
	buf.Grow(size)
	for i, c := range chunks {
		buf.Write(c)
		if i < len(chunks)-1 && len(c) > 0 && c[len(c)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

func sourcesOf(cfg asset.Configuration) []string {
	switch c := cfg.(type) {
	case *asset.Bundled:
		return c.Sources
	case *asset.Mapped:
		return []string{c.Source}
	default:
		return nil
	}
}
