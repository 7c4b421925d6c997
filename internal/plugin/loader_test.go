package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewLoader(t *testing.T) {
	assert.Equal(t, DefaultPluginPaths(), NewLoader().Paths())
	assert.Equal(t, []string{"/a", "/b"}, NewLoader(WithPaths("/a", "/b")).Paths())
}

func TestLoaderDiscoverEmpty(t *testing.T) {
	l := NewLoader(WithPaths(t.TempDir(), filepath.Join(t.TempDir(), "missing")))

	plugins, err := l.Discover()
	require.NoError(t, err)
	assert.Empty(t, plugins)
}

func TestLoaderDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "with-manifest", ManifestFile), `{"pluginName": "named", "main": "main.lua"}`)
	writeFile(t, filepath.Join(root, "with-manifest", "main.lua"), ``)
	writeFile(t, filepath.Join(root, "with-init", "init.lua"), ``)
	writeFile(t, filepath.Join(root, "with-plugin-lua", "plugin.lua"), ``)
	writeFile(t, filepath.Join(root, "clock.lua"), ``)
	writeFile(t, filepath.Join(root, "notes.txt"), ``)

	l := NewLoader(WithPaths(root))
	plugins, err := l.Discover()
	require.NoError(t, err)

	byName := make(map[string]*PluginInfo)
	for _, p := range plugins {
		byName[p.Name] = p
	}
	require.Len(t, byName, 4)

	named := byName["named"]
	require.NotNil(t, named)
	assert.NoError(t, named.Error)
	assert.Equal(t, filepath.Join(root, "with-manifest", "main.lua"), named.Manifest.MainPath())

	assert.Equal(t, "init.lua", byName["with-init"].Manifest.Main)
	assert.Equal(t, "plugin.lua", byName["with-plugin-lua"].Manifest.Main)

	clock := byName["clock"]
	require.NotNil(t, clock)
	assert.Equal(t, filepath.Join(root, "clock.lua"), clock.Path)
	assert.Equal(t, filepath.Join(root, "clock.lua"), clock.Manifest.MainPath())
}

func TestLoaderDiscoverPluginDirAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "single")
	writeFile(t, filepath.Join(dir, "init.lua"), ``)
	file := filepath.Join(t.TempDir(), "solo.lua")
	writeFile(t, file, ``)

	plugins, err := NewLoader(WithPaths(dir, file)).Discover()
	require.NoError(t, err)
	require.Len(t, plugins, 2)
	assert.Equal(t, "single", plugins[0].Name)
	assert.Equal(t, "solo", plugins[1].Name)
}

func TestLoaderDiscoverErrors(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	writeFile(t, filepath.Join(root, "broken", ManifestFile), `{broken`)

	plugins, err := NewLoader(WithPaths(root)).Discover()
	require.NoError(t, err)
	require.Len(t, plugins, 2)

	for _, p := range plugins {
		switch p.Name {
		case "empty":
			assert.ErrorIs(t, p.Error, ErrNoEntryPoint)
		case "broken":
			assert.ErrorContains(t, p.Error, "invalid manifest")
		default:
			t.Fatalf("unexpected plugin %q", p.Name)
		}
	}
}

func TestLoaderFirstPathWins(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(first, "dup", "init.lua"), ``)
	writeFile(t, filepath.Join(second, "dup", "init.lua"), ``)

	l := NewLoader(WithPaths(first, second))
	plugins, err := l.Discover()
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, filepath.Join(first, "dup"), plugins[0].Path)
}

func TestLoaderFindPlugin(t *testing.T) {
	root := t.TempDir()
	l := NewLoader(WithPaths(root))
	_, err := l.Discover()
	require.NoError(t, err)

	_, ok := l.Get("late")
	assert.False(t, ok)

	writeFile(t, filepath.Join(root, "late.lua"), ``)
	info, err := l.FindPlugin("late")
	require.NoError(t, err)
	assert.Equal(t, "late", info.Name)

	_, err = l.FindPlugin("missing")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestLoaderRefresh(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "demo")
	writeFile(t, filepath.Join(dir, ManifestFile), `{"pluginName": "demo", "version": "1.0.0"}`)
	writeFile(t, filepath.Join(dir, "init.lua"), ``)

	l := NewLoader(WithPaths(root))
	_, err := l.Discover()
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, ManifestFile), `{"pluginName": "demo", "version": "2.0.0"}`)
	info, err := l.Refresh("demo")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", info.Manifest.Version)

	got, ok := l.Get("demo")
	require.True(t, ok)
	assert.Same(t, info, got)
}

func TestDefaultPluginPaths(t *testing.T) {
	paths := DefaultPluginPaths()
	require.NotEmpty(t, paths)
	for _, p := range paths {
		assert.Equal(t, "plugins", filepath.Base(p))
	}
}
