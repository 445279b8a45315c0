package asset

import (
	"log/slog"

	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// Strategy names the build variant a Configuration is bound to.
type Strategy string

const (
	// StrategyBundled concatenates several local text sources into one output.
	StrategyBundled Strategy = "bundled"
	// StrategyMapped copies one local source to one output plus companions.
	StrategyMapped Strategy = "mapped"
	// StrategyRemote passes a remote or CDN URL through without building.
	StrategyRemote Strategy = "remote"
)

// Configuration is a Blueprint bound to a build strategy. The concrete value
// is one of *Bundled, *Mapped or *Remote.
type Configuration interface {
	Blueprint() *Blueprint
	Name() string
	Type() Type
	SourceKind() SourceKind
	Strategy() Strategy
	// Extension is the output file extension without a dot.
	Extension() string

	configuration()
}

type base struct {
	bp  *Blueprint
	ext string
}

func (c base) Blueprint() *Blueprint  { return c.bp }
func (c base) Name() string           { return c.bp.Name() }
func (c base) Type() Type             { return c.bp.Type() }
func (c base) SourceKind() SourceKind { return c.bp.Kind() }
func (c base) Extension() string      { return c.ext }
func (base) configuration()           {}

// Bundled concatenates Sources in order.
type Bundled struct {
	base
	Sources []string
}

func (*Bundled) Strategy() Strategy { return StrategyBundled }

// Mapped copies Source to the output. SourceMap is the companion source map
// path probed during the build.
type Mapped struct {
	base
	Source    string
	SourceMap string
}

func (*Mapped) Strategy() Strategy { return StrategyMapped }

// Remote references URL directly.
type Remote struct {
	base
	URL string
}

func (*Remote) Strategy() Strategy { return StrategyRemote }

// FromBlueprint picks the strategy for bp: one local source is Mapped, several
// local text sources are Bundled, and a remote or CDN source is Remote.
// A bundle whose sources classify to more than one type logs one warning and
// proceeds with the declared type.
func FromBlueprint(bp *Blueprint, logger *slog.Logger) (Configuration, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch bp.Kind() {
	case SourceRemote, SourceCDN:
		if bp.SourceCount() != 1 {
			return nil, foundationerrors.ValidationError("remote and cdn assets take exactly one source").
				WithContext("asset_name", bp.Name()).
				WithContext("sources", bp.SourceCount()).
				Build()
		}
		url := bp.Source(0)
		return &Remote{base: base{bp: bp, ext: SourceExtension(url)}, URL: url}, nil

	case SourceLocal:
	default:
		return nil, unsupported(bp, "unresolved source kind")
	}

	if !bp.Type().Resolved() {
		return nil, unsupported(bp, "unresolved asset type")
	}

	if bp.SourceCount() == 1 {
		src := bp.Source(0)
		m := &Mapped{base: base{bp: bp, ext: outputExtension(bp.Type(), src)}, Source: src}
		if bp.Type() == TypeScript || bp.Type() == TypeStyle {
			m.SourceMap = src + ".map"
		}
		return m, nil
	}

	if _, conflict := ClassifySources(bp.Sources()); conflict {
		logger.Warn("Asset sources classify to different types; using declared type",
			logfields.AssetName(bp.Name()),
			logfields.AssetType(bp.Type().String()))
	}
	if !bp.Type().IsText() {
		return nil, unsupported(bp, "only text types can be bundled")
	}
	return &Bundled{
		base:    base{bp: bp, ext: outputExtension(bp.Type(), bp.Source(0))},
		Sources: bp.Sources(),
	}, nil
}

func outputExtension(t Type, firstSource string) string {
	if ext := t.CanonicalExtension(); ext != "" {
		return ext
	}
	if ext := SourceExtension(firstSource); ext != "" {
		return ext
	}
	return string(t)
}

func unsupported(bp *Blueprint, reason string) error {
	return foundationerrors.BuildError("unsupported asset type and source kind combination").
		WithContext("asset_name", bp.Name()).
		WithContext("asset_type", bp.Type().String()).
		WithContext("source_kind", bp.Kind().String()).
		WithContext("reason", reason).
		Build()
}
