package plugin

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trentlee0/utools-template/internal/feature"
)

const greeterScript = `
local feature = require("feature")
feature.none {
	code = "greet",
	title = "Greet",
	handler = function(action) error("hello " .. action.payload) end,
}
`

func newTestManager(t *testing.T, paths ...string) *Manager {
	t.Helper()
	m := NewManager(ManagerConfig{
		PluginPaths:      paths,
		ExecutionTimeout: time.Second,
	})
	t.Cleanup(func() { _ = m.UnloadAll() })
	return m
}

type eventLog struct {
	mu     sync.Mutex
	events []ManagerEvent
}

func (l *eventLog) handle(e ManagerEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []ManagerEventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ManagerEventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

func TestManagerLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "greeter", "init.lua"), greeterScript)
	m := newTestManager(t, root)

	var events eventLog
	m.Subscribe(events.handle)

	h, err := m.Load(context.Background(), "greeter")
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, h.State())
	assert.Equal(t, []ManagerEventType{EventPluginLoaded}, events.types())

	got, ok := m.Get("greeter")
	require.True(t, ok)
	assert.Same(t, h, got)

	_, err = m.Load(context.Background(), "greeter")
	assert.ErrorIs(t, err, ErrAlreadyLoaded)

	_, err = m.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestManagerLoadAll(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.lua"), `require("feature").none { code = "a", handler = function() end }`)
	writeFile(t, filepath.Join(root, "b.lua"), `error("broken")`)
	writeFile(t, filepath.Join(root, "c", "init.lua"), `require("feature").none { code = "c", handler = function() end }`)
	m := newTestManager(t, root)

	var events eventLog
	m.Subscribe(events.handle)

	err := m.LoadAll(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to load 1 plugins")
	assert.ErrorContains(t, err, "broken")

	hosts := m.List()
	require.Len(t, hosts, 2)
	assert.Equal(t, "a", hosts[0].Name())
	assert.Equal(t, "c", hosts[1].Name())
	assert.Contains(t, events.types(), EventPluginError)

	var codes []string
	for _, tmpl := range m.Templates() {
		codes = append(codes, tmpl.FeatureCode())
	}
	assert.Equal(t, []string{"a", "c"}, codes)
}

func TestManagerUnload(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "greeter.lua"), greeterScript)
	m := newTestManager(t, root)
	require.NoError(t, m.LoadAll(context.Background()))

	exports, err := feature.Compile(m.Templates())
	require.NoError(t, err)

	var events eventLog
	m.Subscribe(events.handle)

	require.NoError(t, m.Unload("greeter"))
	assert.Empty(t, m.List())
	assert.Equal(t, []ManagerEventType{EventPluginUnloaded}, events.types())
	assert.ErrorIs(t, m.Unload("greeter"), ErrNotLoaded)

	entry, ok := exports.None("greet")
	require.True(t, ok)
	assert.Error(t, entry.Enter(feature.TextAction("greet", "x")))
}

func TestManagerReload(t *testing.T) {
	root := t.TempDir()
	script := filepath.Join(root, "greeter.lua")
	writeFile(t, script, greeterScript)
	m := newTestManager(t, root)
	require.NoError(t, m.LoadAll(context.Background()))

	var events eventLog
	m.Subscribe(events.handle)

	writeFile(t, script, `
		local feature = require("feature")
		feature.none { code = "greet", handler = function() end }
		feature.none { code = "wave", handler = function() end }
	`)
	require.NoError(t, m.Reload(context.Background(), "greeter"))
	assert.Equal(t, []ManagerEventType{EventPluginReloaded}, events.types())

	exports, err := feature.Compile(m.Templates())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"greet", "wave"}, exports.Codes())

	entry, ok := exports.None("greet")
	require.True(t, ok)
	assert.NoError(t, entry.Enter(feature.TextAction("greet", "x")))
}

func TestManagerReloadRecoversBrokenPlugin(t *testing.T) {
	root := t.TempDir()
	script := filepath.Join(root, "greeter.lua")
	writeFile(t, script, `error("broken")`)
	m := newTestManager(t, root)
	require.Error(t, m.LoadAll(context.Background()))

	err := m.Reload(context.Background(), "greeter")
	assert.ErrorContains(t, err, "reload load failed")

	writeFile(t, script, greeterScript)
	require.NoError(t, m.Reload(context.Background(), "greeter"))
	_, ok := m.Get("greeter")
	assert.True(t, ok)
}

func TestManagerFeatures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", ManifestFile), `{
		"pluginName": "a",
		"features": [{"code": "shared", "explain": "from a", "cmds": ["shared"]}]
	}`)
	writeFile(t, filepath.Join(root, "a", "init.lua"), ``)
	writeFile(t, filepath.Join(root, "b", ManifestFile), `{
		"pluginName": "b",
		"features": [{"code": "shared", "explain": "from b", "cmds": ["shared"]}]
	}`)
	writeFile(t, filepath.Join(root, "b", "init.lua"), `
		require("feature").none { code = "own", title = "Own", handler = function() end }
	`)
	m := newTestManager(t, root)
	require.NoError(t, m.LoadAll(context.Background()))

	features, err := m.Features()
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, "shared", features[0].Code)
	assert.Equal(t, "from b", features[0].Explain)
	assert.Equal(t, "own", features[1].Code)
	assert.Equal(t, "b Own", features[1].Cmds[0].Label)
}

func TestManagerPluginForPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dir", "init.lua"), ``)
	writeFile(t, filepath.Join(root, "solo.lua"), ``)
	m := newTestManager(t, root)
	require.NoError(t, m.LoadAll(context.Background()))

	name, ok := m.PluginForPath(filepath.Join(root, "dir", "lib", "util.lua"))
	require.True(t, ok)
	assert.Equal(t, "dir", name)

	name, ok = m.PluginForPath(filepath.Join(root, "solo.lua"))
	require.True(t, ok)
	assert.Equal(t, "solo", name)

	_, ok = m.PluginForPath(filepath.Join(root, "other.lua"))
	assert.False(t, ok)
	_, ok = m.PluginForPath(filepath.Join(root, "dirty", "init.lua"))
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "dir"),
		filepath.Join(root, "solo.lua"),
	}, m.WatchPaths())
}

func TestManagerSubscribe(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.lua"), ``)
	m := newTestManager(t, root)

	var events eventLog
	unsubscribe := m.Subscribe(events.handle)
	m.Subscribe(func(ManagerEvent) { panic("handler failure") })
	m.Subscribe(nil)

	_, err := m.Load(context.Background(), "a")
	require.NoError(t, err)
	unsubscribe()
	require.NoError(t, m.Unload("a"))

	assert.Equal(t, []ManagerEventType{EventPluginLoaded}, events.types())
}

func TestManagerEventTypeString(t *testing.T) {
	assert.Equal(t, "loaded", EventPluginLoaded.String())
	assert.Equal(t, "unloaded", EventPluginUnloaded.String())
	assert.Equal(t, "reloaded", EventPluginReloaded.String())
	assert.Equal(t, "error", EventPluginError.String())
	assert.Equal(t, "unknown", ManagerEventType(99).String())
}

func TestExamplePlugin(t *testing.T) {
	m := newTestManager(t, filepath.Join("..", "..", "examples", "plugins"))
	require.NoError(t, m.LoadAll(context.Background()))

	exports, err := feature.Compile(m.Templates(), feature.WithStrict())
	require.NoError(t, err)
	assert.Equal(t, []string{"colors", "fruits", "open-url", "repeat"}, exports.Codes())

	features, err := m.Features()
	require.NoError(t, err)
	byCode := make(map[string]string)
	for _, f := range features {
		byCode[f.Code] = f.Cmds[0].Label
	}
	assert.Equal(t, "open url", byCode["open-url"])
	assert.Equal(t, "demo Fruits", byCode["fruits"])

	repeat, ok := exports.List("repeat")
	require.True(t, ok)
	var r renderLog
	require.NoError(t, repeat.Enter(feature.TextAction("repeat", "ab"), r.render))
	items := r.last()
	require.Len(t, items, 5)
	assert.Equal(t, "ab ab ab", items[2].Title)
	count, _ := items[2].Get("count")
	assert.EqualValues(t, 3, count)
	require.NoError(t, repeat.Select(feature.TextAction("repeat", "ab"), items[2]))
}
