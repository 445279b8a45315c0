package asset

import (
	"fmt"
	"slices"

	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Blueprint is an immutable, validated asset definition.
type Blueprint struct {
	name          string
	sources       []string
	kind          SourceKind
	typ           Type
	declaredType  bool
	prefersInline *bool
	preload       *bool
	producer      string
	pinnedID      string
}

// Record is the plain form of a Blueprint used for persistence, manifest
// files and inspection. Enumerations are carried as strings.
type Record struct {
	Name          string   `yaml:"name" json:"name"`
	Sources       []string `yaml:"sources" json:"sources"`
	Source        string   `yaml:"source,omitempty" json:"source,omitempty"`
	Type          string   `yaml:"type,omitempty" json:"type,omitempty"`
	PrefersInline *bool    `yaml:"prefers_inline,omitempty" json:"prefers_inline,omitempty"`
	Preload       *bool    `yaml:"preload,omitempty" json:"preload,omitempty"`
	Producer      string   `yaml:"producer,omitempty" json:"producer,omitempty"`
	ID            string   `yaml:"id,omitempty" json:"id,omitempty"`
}

// Option customizes Blueprint construction.
type Option func(*blueprintOptions)

type blueprintOptions struct {
	strict        bool
	prefersInline *bool
	preload       *bool
	producer      string
	pinnedID      string
}

// Lenient resolves invalid enumeration strings to their unresolved value
// instead of failing. Strict is the default.
func Lenient() Option {
	return func(o *blueprintOptions) { o.strict = false }
}

// WithInline records the prefers-inline hint.
func WithInline(inline bool) Option {
	return func(o *blueprintOptions) { o.prefersInline = &inline }
}

// WithPreload records the preload hint.
func WithPreload(preload bool) Option {
	return func(o *blueprintOptions) { o.preload = &preload }
}

// WithProducer overrides DefaultProducer in the identity tuple.
func WithProducer(producer string) Option {
	return func(o *blueprintOptions) { o.producer = producer }
}

// WithPinnedID pins an externally managed AssetID.
func WithPinnedID(id string) Option {
	return func(o *blueprintOptions) { o.pinnedID = id }
}

// NewBlueprint validates and normalizes a definition. kind and t are the raw
// string forms; t may be empty to derive the type from the source extensions.
func NewBlueprint(name string, sources []string, kind, t string, opts ...Option) (*Blueprint, error) {
	o := blueprintOptions{strict: true, producer: DefaultProducer}
	for _, opt := range opts {
		opt(&o)
	}

	normalized, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		return nil, foundationerrors.ValidationError("asset requires at least one source").
			WithContext("asset_name", normalized).
			Build()
	}
	for i, src := range sources {
		if src == "" {
			return nil, foundationerrors.ValidationError(fmt.Sprintf("source %d is empty", i)).
				WithContext("asset_name", normalized).
				Build()
		}
	}

	sourceKind := SourceLocal
	if kind != "" {
		if sourceKind, err = ParseSourceKind(kind, o.strict); err != nil {
			return nil, err
		}
	}

	bp := &Blueprint{
		name:          normalized,
		sources:       slices.Clone(sources),
		kind:          sourceKind,
		prefersInline: o.prefersInline,
		preload:       o.preload,
		producer:      o.producer,
	}

	if t != "" {
		if bp.typ, err = ParseType(t, o.strict); err != nil {
			return nil, err
		}
		bp.declaredType = bp.typ.Resolved()
	} else {
		derived, conflict := ClassifySources(sources)
		if conflict && o.strict {
			return nil, foundationerrors.ValidationError("sources classify to different asset types; declare the type explicitly").
				WithContext("asset_name", normalized).
				WithContext("sources", sources).
				Build()
		}
		if !derived.Resolved() && o.strict {
			return nil, foundationerrors.ValidationError("cannot derive asset type from source extensions").
				WithContext("asset_name", normalized).
				WithContext("sources", sources).
				Build()
		}
		if !conflict {
			bp.typ = derived
		}
	}

	if o.pinnedID != "" {
		if err := ValidateID(o.pinnedID); err != nil {
			return nil, err
		}
		bp.pinnedID = o.pinnedID
	}
	return bp, nil
}

// StringSources converts typed source values to their string form.
func StringSources[T fmt.Stringer](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.String()
	}
	return out
}

// FromRecord rebuilds a Blueprint from its plain form.
func FromRecord(rec Record, opts ...Option) (*Blueprint, error) {
	all := make([]Option, 0, len(opts)+4)
	if rec.PrefersInline != nil {
		all = append(all, WithInline(*rec.PrefersInline))
	}
	if rec.Preload != nil {
		all = append(all, WithPreload(*rec.Preload))
	}
	if rec.Producer != "" {
		all = append(all, WithProducer(rec.Producer))
	}
	if rec.ID != "" {
		all = append(all, WithPinnedID(rec.ID))
	}
	all = append(all, opts...)
	return NewBlueprint(rec.Name, rec.Sources, rec.Source, rec.Type, all...)
}

func (b *Blueprint) Name() string        { return b.name }
func (b *Blueprint) Kind() SourceKind    { return b.kind }
func (b *Blueprint) Type() Type          { return b.typ }
func (b *Blueprint) Producer() string    { return b.producer }
func (b *Blueprint) PinnedID() string    { return b.pinnedID }
func (b *Blueprint) DeclaredType() bool  { return b.declaredType }
func (b *Blueprint) Sources() []string   { return slices.Clone(b.sources) }
func (b *Blueprint) PrefersInline() bool { return b.prefersInline != nil && *b.prefersInline }
func (b *Blueprint) Preload() bool       { return b.preload != nil && *b.preload }
func (b *Blueprint) SourceCount() int    { return len(b.sources) }
func (b *Blueprint) Source(i int) string { return b.sources[i] }

// Record returns the normalized definition. Feeding it back through
// FromRecord yields a Blueprint with the same AssetID.
func (b *Blueprint) Record() Record {
	rec := Record{
		Name:     b.name,
		Sources:  slices.Clone(b.sources),
		Source:   string(b.kind),
		Type:     string(b.typ),
		Producer: b.producer,
		ID:       b.pinnedID,
	}
	if b.prefersInline != nil {
		v := *b.prefersInline
		rec.PrefersInline = &v
	}
	if b.preload != nil {
		v := *b.preload
		rec.Preload = &v
	}
	return rec
}

// ResolveAssetID returns explicitID when supplied (after validating its
// shape), the pinned id when the Blueprint carries one, and the computed
// identity otherwise.
func (b *Blueprint) ResolveAssetID(explicitID string) (string, error) {
	if explicitID != "" {
		if err := ValidateID(explicitID); err != nil {
			return "", err
		}
		return explicitID, nil
	}
	if b.pinnedID != "" {
		return b.pinnedID, nil
	}
	return b.ID(), nil
}

// ID is the computed identity, ignoring any pinned id.
func (b *Blueprint) ID() string {
	return ComputeID(b.producer, b.name, b.typ, b.kind, b.sources...)
}

// Equal reports whether two Blueprints describe the same definition.
func (b *Blueprint) Equal(other *Blueprint) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.name == other.name &&
		b.kind == other.kind &&
		b.typ == other.typ &&
		b.producer == other.producer &&
		b.pinnedID == other.pinnedID &&
		slices.Equal(b.sources, other.sources) &&
		equalHint(b.prefersInline, other.prefersInline) &&
		equalHint(b.preload, other.preload)
}

func equalHint(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
