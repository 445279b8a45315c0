package asset

import (
	"path/filepath"
	"strings"
)

// Built is the immutable record of a finished build. It is what the builder
// caches per AssetID and what the locator hands to callers.
type Built struct {
	ID       string     `cbor:"1,keyasint" json:"id"`
	Name     string     `cbor:"2,keyasint" json:"name"`
	Type     Type       `cbor:"3,keyasint" json:"type"`
	Kind     SourceKind `cbor:"4,keyasint" json:"source"`
	Strategy Strategy   `cbor:"5,keyasint" json:"strategy"`

	// RelativePath is relative to the public root, e.g. "0123456789abcdef.css".
	// Empty for remote assets.
	RelativePath string `cbor:"6,keyasint,omitempty" json:"relative_path,omitempty"`
	AbsolutePath string `cbor:"7,keyasint,omitempty" json:"absolute_path,omitempty"`
	BuildPath    string `cbor:"8,keyasint,omitempty" json:"build_path,omitempty"`
	URL          string `cbor:"9,keyasint" json:"url"`
	Version      string `cbor:"10,keyasint" json:"version"`
	HTML         string `cbor:"11,keyasint" json:"html"`

	// MappedPaths are companion outputs relative to the public root:
	// source maps and precompressed variants.
	MappedPaths []string `cbor:"12,keyasint,omitempty" json:"mapped_paths,omitempty"`

	// Fingerprint digests the source stamps the build was made from.
	Fingerprint string `cbor:"13,keyasint,omitempty" json:"fingerprint,omitempty"`
	Size        int64  `cbor:"14,keyasint,omitempty" json:"size,omitempty"`
	Extension   string `cbor:"15,keyasint,omitempty" json:"extension,omitempty"`
	Inline      bool   `cbor:"16,keyasint,omitempty" json:"inline,omitempty"`
	Preload     bool   `cbor:"17,keyasint,omitempty" json:"preload,omitempty"`
}

// Is reports whether the asset has type t.
func (b *Built) Is(t Type) bool {
	return b != nil && b.Type == t
}

// Path returns the public path, relative to the public root when relative is
// true and absolute otherwise. Remote assets have no path.
func (b *Built) Path(relative bool) string {
	if relative {
		return b.RelativePath
	}
	return b.AbsolutePath
}

// OutputName is the file name shared by the build and public copies.
func OutputName(id, ext string) string {
	if ext == "" {
		return id
	}
	return id + "." + ext
}

// PublicURL joins a public URL prefix and a relative path with exactly one slash.
func PublicURL(prefix, rel string) string {
	rel = filepath.ToSlash(rel)
	if prefix == "" {
		return "/" + strings.TrimPrefix(rel, "/")
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(rel, "/")
}
