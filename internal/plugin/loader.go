package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Loader discovers plugins from the filesystem.
//
// A configured path may be a single .lua file, a plugin directory (one
// holding plugin.json, init.lua or plugin.lua) or a directory whose
// children are plugins.
type Loader struct {
	mu    sync.Mutex
	paths []string

	// Discovered plugins, in discovery order
	discovered map[string]*PluginInfo
	order      []string
}

// PluginInfo contains discovery information about a plugin.
type PluginInfo struct {
	Name     string
	Path     string
	Manifest *Manifest
	Error    error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultPluginPaths(),
		discovered: make(map[string]*PluginInfo),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultPluginPaths returns the default plugin search paths.
func DefaultPluginPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "utools-template", "plugins"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, "plugins"))
	}
	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

// Discover finds all plugins in the search paths. The first plugin found
// under a name wins; missing paths are skipped.
func (l *Loader) Discover() ([]*PluginInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.discovered = make(map[string]*PluginInfo)
	l.order = l.order[:0]

	for _, path := range l.paths {
		if err := l.discoverPath(path); err != nil {
			return nil, fmt.Errorf("discover %s: %w", path, err)
		}
	}

	plugins := make([]*PluginInfo, 0, len(l.order))
	for _, name := range l.order {
		plugins = append(plugins, l.discovered[name])
	}
	return plugins, nil
}

func (l *Loader) discoverPath(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if !stat.IsDir() {
		if filepath.Ext(path) == ".lua" {
			l.add(singleFilePlugin(path))
		}
		return nil
	}

	if isPluginDir(path) {
		l.add(inspectPlugin(filepath.Base(path), path))
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		child := filepath.Join(path, entry.Name())
		if !entry.IsDir() {
			if filepath.Ext(entry.Name()) == ".lua" {
				l.add(singleFilePlugin(child))
			}
			continue
		}
		l.add(inspectPlugin(entry.Name(), child))
	}
	return nil
}

func (l *Loader) add(info *PluginInfo) {
	if _, exists := l.discovered[info.Name]; exists {
		return
	}
	l.discovered[info.Name] = info
	l.order = append(l.order, info.Name)
}

func isPluginDir(dir string) bool {
	for _, name := range []string{ManifestFile, "init.lua", "plugin.lua"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func singleFilePlugin(luaPath string) *PluginInfo {
	name := strings.TrimSuffix(filepath.Base(luaPath), ".lua")
	manifest := NewManifestMinimal(name, filepath.Dir(luaPath))
	manifest.Main = filepath.Base(luaPath)
	return &PluginInfo{
		Name:     name,
		Path:     luaPath,
		Manifest: manifest,
	}
}

// inspectPlugin examines a plugin directory and returns its info.
func inspectPlugin(name, dir string) *PluginInfo {
	info := &PluginInfo{Name: name, Path: dir}

	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err == nil {
		manifest, err := LoadManifestFromDir(dir)
		if err != nil {
			info.Error = fmt.Errorf("invalid manifest: %w", err)
			return info
		}
		info.Manifest = manifest
		info.Name = manifest.Name
		return info
	}

	for _, main := range []string{"init.lua", "plugin.lua"} {
		if _, err := os.Stat(filepath.Join(dir, main)); err == nil {
			info.Manifest = NewManifestMinimal(name, dir)
			info.Manifest.Main = main
			return info
		}
	}

	info.Error = ErrNoEntryPoint
	return info
}

// Get returns info for a discovered plugin.
func (l *Loader) Get(name string) (*PluginInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info, ok := l.discovered[name]
	return info, ok
}

// FindPlugin returns a plugin by name, discovering again when it is not
// known yet.
func (l *Loader) FindPlugin(name string) (*PluginInfo, error) {
	if info, ok := l.Get(name); ok {
		return info, nil
	}
	if _, err := l.Discover(); err != nil {
		return nil, err
	}
	if info, ok := l.Get(name); ok {
		return info, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
}

// Refresh re-reads the plugin called name from disk.
func (l *Loader) Refresh(name string) (*PluginInfo, error) {
	l.mu.Lock()
	info, ok := l.discovered[name]
	l.mu.Unlock()
	if !ok {
		return l.FindPlugin(name)
	}

	var fresh *PluginInfo
	if filepath.Ext(info.Path) == ".lua" {
		fresh = singleFilePlugin(info.Path)
	} else {
		fresh = inspectPlugin(filepath.Base(info.Path), info.Path)
	}

	l.mu.Lock()
	l.discovered[name] = fresh
	l.mu.Unlock()
	return fresh, nil
}
