package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trentlee0/utools-template/internal/host"
)

// ManifestFile is the manifest name inside a plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin directory.
type Manifest struct {
	Name        string `json:"pluginName"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Logo        string `json:"logo"`

	// Main is the script declaring the features, relative to the plugin
	// directory (default: "init.lua").
	Main string `json:"main"`

	// Features is launcher metadata. Features a script declares without
	// metadata here get derived metadata.
	Features []host.FeatureSpec `json:"features"`

	// Internal: path to the plugin directory
	path string
}

// Validation errors.
var (
	ErrMissingName = errors.New("manifest: pluginName is required")
	ErrInvalidMain = errors.New("manifest: main must be a .lua file")
)

// LoadManifest loads and validates a plugin manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestFromDir loads plugin.json from a plugin directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestFile))
}

// NewManifestMinimal creates a manifest for a plugin without plugin.json.
func NewManifestMinimal(name, dir string) *Manifest {
	return &Manifest{
		Name: name,
		Main: "init.lua",
		path: dir,
	}
}

func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = "init.lua"
	}
}

// Validate checks that the manifest is usable.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}
	if _, err := m.BuildFeatures(); err != nil {
		return fmt.Errorf("manifest %q: %w", m.Name, err)
	}
	return nil
}

// BuildFeatures compiles the declared feature metadata.
func (m *Manifest) BuildFeatures() ([]host.Feature, error) {
	features := make([]host.Feature, 0, len(m.Features))
	for _, spec := range m.Features {
		f, err := spec.Build()
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, nil
}

// Path returns the plugin directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the main script.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}
