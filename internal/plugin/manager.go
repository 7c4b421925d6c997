package plugin

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/trentlee0/utools-template/internal/feature"
	"github.com/trentlee0/utools-template/internal/host"
	"github.com/trentlee0/utools-template/internal/logging"
	plua "github.com/trentlee0/utools-template/internal/plugin/lua"
)

// Manager loads every discovered plugin and aggregates their templates.
type Manager struct {
	mu sync.RWMutex

	loader *Loader

	// Loaded plugins by name
	plugins map[string]*Host

	// Plugin load order; later plugins win on duplicate codes
	loadOrder []string

	eventHandlers []EventHandler

	config ManagerConfig
}

// ManagerConfig configures the plugin manager.
type ManagerConfig struct {
	// PluginPaths are files and directories to search for plugins.
	PluginPaths []string

	// ExecutionTimeout bounds each script run and callback.
	ExecutionTimeout time.Duration

	Logger *logging.Logger
}

// DefaultManagerConfig returns the default configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		PluginPaths:      DefaultPluginPaths(),
		ExecutionTimeout: plua.DefaultExecutionTimeout,
		Logger:           logging.Nop(),
	}
}

// EventHandler handles plugin manager events. Handlers run synchronously
// and must not call back into the Manager.
type EventHandler func(event ManagerEvent)

// ManagerEvent represents a plugin manager event.
type ManagerEvent struct {
	Type   ManagerEventType
	Plugin string
	Error  error
}

// ManagerEventType is the type of manager event.
type ManagerEventType int

const (
	// EventPluginLoaded is emitted when a plugin is loaded.
	EventPluginLoaded ManagerEventType = iota
	// EventPluginUnloaded is emitted when a plugin is unloaded.
	EventPluginUnloaded
	// EventPluginReloaded is emitted when a plugin is reloaded.
	EventPluginReloaded
	// EventPluginError is emitted when a plugin fails to load or reload.
	EventPluginError
)

// String returns a string representation of the event type.
func (t ManagerEventType) String() string {
	switch t {
	case EventPluginLoaded:
		return "loaded"
	case EventPluginUnloaded:
		return "unloaded"
	case EventPluginReloaded:
		return "reloaded"
	case EventPluginError:
		return "error"
	default:
		return "unknown"
	}
}

// NewManager creates a new plugin manager.
func NewManager(config ManagerConfig) *Manager {
	if config.Logger == nil {
		config.Logger = logging.Nop()
	}
	return &Manager{
		loader:  NewLoader(WithPaths(config.PluginPaths...)),
		plugins: make(map[string]*Host),
		config:  config,
	}
}

// Load loads a plugin by name.
func (m *Manager) Load(ctx context.Context, name string) (*Host, error) {
	m.mu.RLock()
	_, exists := m.plugins[name]
	m.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}

	info, err := m.loader.FindPlugin(name)
	if err != nil {
		return nil, err
	}
	return m.load(ctx, info, EventPluginLoaded)
}

func (m *Manager) load(ctx context.Context, info *PluginInfo, event ManagerEventType) (*Host, error) {
	if info.Error != nil {
		m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: info.Name, Error: info.Error})
		return nil, fmt.Errorf("plugin %q: %w", info.Name, info.Error)
	}

	h, err := NewHost(info.Manifest,
		WithHostExecutionTimeout(m.config.ExecutionTimeout),
		WithHostLogger(m.config.Logger),
	)
	if err != nil {
		return nil, err
	}
	if err := h.Load(ctx); err != nil {
		m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: info.Name, Error: err})
		return nil, err
	}

	m.mu.Lock()
	if _, exists := m.plugins[info.Name]; exists {
		m.mu.Unlock()
		h.Unload()
		return nil, fmt.Errorf("plugin %q: %w", info.Name, ErrAlreadyLoaded)
	}
	m.plugins[info.Name] = h
	m.loadOrder = append(m.loadOrder, info.Name)
	m.mu.Unlock()

	m.config.Logger.Info("plugin %s %s", info.Name, event)
	m.emitEvent(ManagerEvent{Type: event, Plugin: info.Name})
	return h, nil
}

// LoadAll loads every discovered plugin. Failing plugins are skipped and
// reported together.
func (m *Manager) LoadAll(ctx context.Context) error {
	plugins, err := m.loader.Discover()
	if err != nil {
		return err
	}

	var loadErrors []error
	for _, info := range plugins {
		if _, err := m.load(ctx, info, EventPluginLoaded); err != nil {
			loadErrors = append(loadErrors, err)
		}
	}
	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d plugins: %w", len(loadErrors), errors.Join(loadErrors...))
	}
	return nil
}

// Unload unloads a plugin by name.
func (m *Manager) Unload(name string) error {
	if err := m.unload(name); err != nil {
		return err
	}
	m.emitEvent(ManagerEvent{Type: EventPluginUnloaded, Plugin: name})
	return nil
}

func (m *Manager) unload(name string) error {
	m.mu.Lock()
	h, exists := m.plugins[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", name, ErrNotLoaded)
	}
	delete(m.plugins, name)
	m.removeFromLoadOrder(name)
	m.mu.Unlock()

	return h.Unload()
}

// UnloadAll unloads every plugin.
func (m *Manager) UnloadAll() error {
	m.mu.RLock()
	names := append([]string(nil), m.loadOrder...)
	m.mu.RUnlock()

	var errs []error
	for _, name := range names {
		if err := m.Unload(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reload re-reads a plugin from disk and runs its script again. A plugin
// that failed earlier is loaded afresh.
func (m *Manager) Reload(ctx context.Context, name string) error {
	if err := m.unload(name); err != nil && !errors.Is(err, ErrNotLoaded) {
		return fmt.Errorf("reload unload failed: %w", err)
	}

	info, err := m.loader.Refresh(name)
	if err != nil {
		m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		return fmt.Errorf("reload refresh failed: %w", err)
	}
	if _, err := m.load(ctx, info, EventPluginReloaded); err != nil {
		return fmt.Errorf("reload load failed: %w", err)
	}
	return nil
}

// Get returns a loaded plugin.
func (m *Manager) Get(name string) (*Host, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.plugins[name]
	return h, ok
}

// List returns loaded plugins in load order.
func (m *Manager) List() []*Host {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hosts := make([]*Host, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		hosts = append(hosts, m.plugins[name])
	}
	return hosts
}

// Templates returns the templates of all loaded plugins in load order.
func (m *Manager) Templates() []feature.Template {
	var out []feature.Template
	for _, h := range m.List() {
		out = append(out, h.Templates()...)
	}
	return out
}

// Features returns the launcher metadata of all loaded plugins. For a
// code described by several plugins the later one wins.
func (m *Manager) Features() ([]host.Feature, error) {
	var out []host.Feature
	index := make(map[string]int)
	for _, h := range m.List() {
		features, err := h.Features()
		if err != nil {
			return nil, fmt.Errorf("plugin %q: %w", h.Name(), err)
		}
		for _, f := range features {
			if i, ok := index[f.Code]; ok {
				out[i] = f
				continue
			}
			index[f.Code] = len(out)
			out = append(out, f)
		}
	}
	return out, nil
}

// PluginForPath returns the loaded or discovered plugin owning a file.
func (m *Manager) PluginForPath(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	m.loader.mu.Lock()
	defer m.loader.mu.Unlock()
	for _, name := range m.loader.order {
		info := m.loader.discovered[name]
		root, err := filepath.Abs(info.Path)
		if err != nil {
			continue
		}
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return name, true
		}
	}
	return "", false
}

// WatchPaths returns the files and directories of discovered plugins.
func (m *Manager) WatchPaths() []string {
	m.loader.mu.Lock()
	defer m.loader.mu.Unlock()

	paths := make([]string, 0, len(m.loader.order))
	for _, name := range m.loader.order {
		paths = append(paths, m.loader.discovered[name].Path)
	}
	return paths
}

// Subscribe adds an event handler.
// Returns an unsubscribe function to remove the handler.
func (m *Manager) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	m.mu.Lock()
	m.eventHandlers = append(m.eventHandlers, handler)
	index := len(m.eventHandlers) - 1
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if index < len(m.eventHandlers) {
			m.eventHandlers[index] = nil
		}
	}
}

// Loader returns the underlying loader.
func (m *Manager) Loader() *Loader {
	return m.loader
}

// emitEvent sends an event to all handlers outside the lock. Panicking
// handlers are logged and skipped.
func (m *Manager) emitEvent(event ManagerEvent) {
	m.mu.RLock()
	handlers := make([]EventHandler, len(m.eventHandlers))
	copy(handlers, m.eventHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.config.Logger.Error("plugin event handler panicked: %v", r)
				}
			}()
			handler(event)
		}()
	}
}

// removeFromLoadOrder removes a name from the load order slice.
// Must be called with mu held.
func (m *Manager) removeFromLoadOrder(name string) {
	for i, n := range m.loadOrder {
		if n == name {
			m.loadOrder = append(m.loadOrder[:i], m.loadOrder[i+1:]...)
			return
		}
	}
}
