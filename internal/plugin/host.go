package plugin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trentlee0/utools-template/internal/feature"
	"github.com/trentlee0/utools-template/internal/host"
	"github.com/trentlee0/utools-template/internal/logging"
	plua "github.com/trentlee0/utools-template/internal/plugin/lua"
)

// Host runs a single plugin script and holds the templates it declared.
type Host struct {
	mu sync.RWMutex

	// Identity
	name     string
	manifest *Manifest

	// Lua runtime
	state  *plua.State
	bridge *plua.Bridge

	// State
	pluginState State
	err         error

	// Declarations, in script order
	templates []feature.Template
	metas     []host.Meta

	// Options
	executionTimeout time.Duration
	log              *logging.Logger
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostExecutionTimeout sets the execution timeout for plugin calls.
func WithHostExecutionTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		h.executionTimeout = d
	}
}

// WithHostLogger sets the logger for script output and lifecycle events.
func WithHostLogger(l *logging.Logger) HostOption {
	return func(h *Host) {
		h.log = l
	}
}

// NewHost creates a new plugin host for the given manifest.
func NewHost(manifest *Manifest, opts ...HostOption) (*Host, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}

	h := &Host{
		name:             manifest.Name,
		manifest:         manifest,
		pluginState:      StateUnloaded,
		executionTimeout: plua.DefaultExecutionTimeout,
		log:              logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("plugin", h.name)
	return h, nil
}

// Name returns the plugin name.
func (h *Host) Name() string {
	return h.name
}

// Manifest returns the plugin manifest.
func (h *Host) Manifest() *Manifest {
	return h.manifest
}

// State returns the lifecycle state.
func (h *Host) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pluginState
}

// Error returns the error of the last failed load.
func (h *Host) Error() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Load runs the main script and records the templates it declares.
func (h *Host) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState == StateLoaded {
		return ErrAlreadyLoaded
	}

	h.state = plua.NewState(
		plua.WithExecutionTimeout(h.executionTimeout),
		plua.WithLogger(h.log),
	)
	h.bridge = plua.NewBridge(h.state.L)
	h.templates, h.metas = nil, nil
	h.state.Preload(ModuleName, h.loadModule)

	if err := h.state.DoFile(h.manifest.MainPath()); err != nil {
		h.state.Close()
		h.state = nil
		h.templates, h.metas = nil, nil
		h.pluginState = StateError
		h.err = fmt.Errorf("plugin %s: %w", h.name, err)
		return h.err
	}

	h.pluginState = StateLoaded
	h.err = nil
	h.log.Debug("loaded %d features from %s", len(h.templates), h.manifest.MainPath())
	return nil
}

// declare records a template. Only called while the script runs inside
// Load, which holds h.mu.
func (h *Host) declare(t feature.Template, m host.Meta) {
	h.templates = append(h.templates, t)
	h.metas = append(h.metas, m)
}

// Unload closes the Lua state. Callbacks of compiled templates fail with
// the state's closed error afterwards.
func (h *Host) Unload() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState != StateLoaded {
		return ErrNotLoaded
	}
	err := h.state.Close()
	h.state = nil
	h.templates, h.metas = nil, nil
	h.pluginState = StateUnloaded
	return err
}

// Templates returns the declared templates in script order.
func (h *Host) Templates() []feature.Template {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]feature.Template(nil), h.templates...)
}

// Features returns the launcher metadata of the plugin: the manifest's
// features first, then derived metadata for every declared template the
// manifest does not describe.
func (h *Host) Features() ([]host.Feature, error) {
	features, err := h.manifest.BuildFeatures()
	if err != nil {
		return nil, err
	}
	described := make(map[string]bool, len(features))
	for _, f := range features {
		described[f.Code] = true
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, m := range h.metas {
		if described[m.Code] {
			continue
		}
		described[m.Code] = true
		features = append(features, host.DeriveFeature(h.name, m))
	}
	return features, nil
}
