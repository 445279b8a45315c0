package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// File is the on-disk manifest format. YAML is the default; files ending in
// .json or .jsonc are parsed as JSON with comments.
type File struct {
	Assets []asset.Record `yaml:"assets" json:"assets"`
}

// ReadFile parses the manifest at path.
func ReadFile(path string) (*File, error) {
	// #nosec G304 - manifest path is operator supplied
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, foundationerrors.NotFoundError("manifest file").
				WithContext("path", path).
				Build()
		}
		return nil, foundationerrors.FileSystemError("cannot read manifest file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes manifest bytes. ext selects the format (".json"/".jsonc" or YAML).
func Parse(data []byte, ext string) (*File, error) {
	var f File
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
			return nil, foundationerrors.ValidationError("invalid JSON manifest").WithCause(err).Build()
		}
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, foundationerrors.ValidationError("invalid YAML manifest").WithCause(err).Build()
		}
	}
	return &f, nil
}

// Encode renders f as YAML.
func (f *File) Encode() ([]byte, error) {
	return yaml.Marshal(f)
}

// RegisterAll registers every record in order and stops at the first
// failure. The error names the offending entry.
func (m *Manifest) RegisterAll(records []asset.Record, opts ...asset.Option) error {
	for i, rec := range records {
		if _, err := m.RegisterRecord(rec, opts...); err != nil {
			if ce, ok := foundationerrors.AsClassified(err); ok {
				return ce.WithContext("entry", i).WithContext("asset_name", rec.Name)
			}
			return fmt.Errorf("manifest entry %d (%s): %w", i, rec.Name, err)
		}
	}
	return nil
}

// Load registers every asset declared in the file at path into m.
func Load(path string, m *Manifest, opts ...asset.Option) error {
	f, err := ReadFile(path)
	if err != nil {
		return err
	}
	return m.RegisterAll(f.Assets, opts...)
}
