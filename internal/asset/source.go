package asset

import "git.home.luguber.info/inful/assetpipe/internal/foundation/normalization"

// SourceKind describes where an asset's bytes originate.
type SourceKind string

const (
	SourceUnresolved SourceKind = ""
	SourceLocal      SourceKind = "local"
	SourceRemote     SourceKind = "remote"
	SourceCDN        SourceKind = "cdn"
)

var sourceKindNormalizer = normalization.NewEnumNormalizer("source kind", map[string]SourceKind{
	"local":  SourceLocal,
	"remote": SourceRemote,
	"cdn":    SourceCDN,
}, SourceUnresolved)

// ParseSourceKind converts raw into a SourceKind. Strict mode fails on unknown
// values; lenient mode yields SourceUnresolved.
func ParseSourceKind(raw string, strict bool) (SourceKind, error) {
	return sourceKindNormalizer.Parse(raw, strict)
}

// Valid reports whether k is one of the declared kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceLocal, SourceRemote, SourceCDN:
		return true
	default:
		return false
	}
}

// IsLocal reports whether the asset is built from the local filesystem.
func (k SourceKind) IsLocal() bool { return k == SourceLocal }

func (k SourceKind) String() string {
	if k == SourceUnresolved {
		return "unresolved"
	}
	return string(k)
}
