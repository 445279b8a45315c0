// Package manifest is the name-keyed registry of asset blueprints and the
// configurations and built records resolved from them.
package manifest

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// Manifest maps asset names to blueprints. Registration and resolution are
// serialized per name, never globally.
type Manifest struct {
	entries sync.Map // name -> *entry
	count   atomic.Int64
	logger  *slog.Logger
}

type entry struct {
	bp *asset.Blueprint

	once   sync.Once
	cfg    asset.Configuration
	cfgErr error

	resolved atomic.Pointer[asset.Built]
}

// Registration is the inspectable form of a registered asset.
type Registration struct {
	asset.Record `yaml:",inline"`
	AssetID      string `yaml:"asset_id" json:"asset_id"`
}

// New creates an empty Manifest. A nil logger selects slog.Default.
func New(logger *slog.Logger) *Manifest {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manifest{logger: logger}
}

// Register adds bp. Registering an identical definition again is a no-op;
// registering a different definition under a taken name fails with a
// conflict error carrying a diff of the two definitions.
func (m *Manifest) Register(bp *asset.Blueprint) error {
	actual, loaded := m.entries.LoadOrStore(bp.Name(), &entry{bp: bp})
	if !loaded {
		m.count.Add(1)
		m.logger.Debug("Registered asset",
			logfields.AssetName(bp.Name()),
			logfields.AssetType(bp.Type().String()),
			logfields.SourceKind(bp.Kind().String()))
		return nil
	}
	existing := actual.(*entry).bp
	if existing.Equal(bp) {
		return nil
	}
	return foundationerrors.DuplicateNameConflict(bp.Name(), definitionDiff(existing, bp)).Build()
}

// RegisterRecord validates rec and registers the resulting blueprint.
func (m *Manifest) RegisterRecord(rec asset.Record, opts ...asset.Option) (*asset.Blueprint, error) {
	bp, err := asset.FromRecord(rec, opts...)
	if err != nil {
		return nil, err
	}
	if err := m.Register(bp); err != nil {
		return nil, err
	}
	return bp, nil
}

func definitionDiff(registered, incoming *asset.Blueprint) string {
	a, errA := yaml.Marshal(registered.Record())
	b, errB := yaml.Marshal(incoming.Record())
	if errA != nil || errB != nil {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: "registered",
		ToFile:   "incoming",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

func (m *Manifest) load(name string) (*entry, bool) {
	v, ok := m.entries.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

// HasAsset reports whether name is registered.
func (m *Manifest) HasAsset(name string) bool {
	_, ok := m.entries.Load(name)
	return ok
}

// Len returns the number of registered assets.
func (m *Manifest) Len() int {
	return int(m.count.Load())
}

// GetAssetBlueprint returns the blueprint for name, or nil.
func (m *Manifest) GetAssetBlueprint(name string) *asset.Blueprint {
	if e, ok := m.load(name); ok {
		return e.bp
	}
	return nil
}

// GetRegisteredAssets returns every blueprint ordered by name.
func (m *Manifest) GetRegisteredAssets() []*asset.Blueprint {
	var out []*asset.Blueprint
	m.entries.Range(func(_, v any) bool {
		out = append(out, v.(*entry).bp)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns every registered name in order.
func (m *Manifest) Names() []string {
	bps := m.GetRegisteredAssets()
	names := make([]string, len(bps))
	for i, bp := range bps {
		names[i] = bp.Name()
	}
	return names
}

// GetRegisteredConfiguration returns the normalized definition of name plus
// its effective AssetID.
func (m *Manifest) GetRegisteredConfiguration(name string) (Registration, bool) {
	e, ok := m.load(name)
	if !ok {
		return Registration{}, false
	}
	id, _ := e.bp.ResolveAssetID("")
	return Registration{Record: e.bp.Record(), AssetID: id}, true
}

// Resolve returns the Configuration for name, creating it on first use and
// caching it (or its error) for the manifest's lifetime.
func (m *Manifest) Resolve(name string) (asset.Configuration, error) {
	e, ok := m.load(name)
	if !ok {
		return nil, foundationerrors.NotFoundError("asset "+name).
			WithContext("asset_name", name).
			Build()
	}
	e.once.Do(func() {
		e.cfg, e.cfgErr = asset.FromBlueprint(e.bp, m.logger)
	})
	return e.cfg, e.cfgErr
}

// RecordResolved stores the latest built record for name. Unknown names are
// ignored.
func (m *Manifest) RecordResolved(name string, built *asset.Built) {
	if e, ok := m.load(name); ok {
		e.resolved.Store(built)
	}
}

// ClearResolved drops the built record for name.
func (m *Manifest) ClearResolved(name string) {
	if e, ok := m.load(name); ok {
		e.resolved.Store(nil)
	}
}

// GetResolved returns the built record for name, or nil.
func (m *Manifest) GetResolved(name string) *asset.Built {
	if e, ok := m.load(name); ok {
		return e.resolved.Load()
	}
	return nil
}

// GetResolvedAssets returns every built record keyed by name.
func (m *Manifest) GetResolvedAssets() map[string]*asset.Built {
	out := make(map[string]*asset.Built)
	m.entries.Range(func(k, v any) bool {
		if built := v.(*entry).resolved.Load(); built != nil {
			out[k.(string)] = built
		}
		return true
	})
	return out
}
