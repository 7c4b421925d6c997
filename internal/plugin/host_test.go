package plugin

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trentlee0/utools-template/internal/feature"
	"github.com/trentlee0/utools-template/internal/host"
	"github.com/trentlee0/utools-template/internal/logging"
	plua "github.com/trentlee0/utools-template/internal/plugin/lua"
)

func createTestPlugin(t *testing.T, name, script string) *Manifest {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "init.lua"), []byte(script), 0o644))
	return NewManifestMinimal(name, dir)
}

func loadHost(t *testing.T, script string, opts ...HostOption) *Host {
	t.Helper()
	h, err := NewHost(createTestPlugin(t, "test", script), opts...)
	require.NoError(t, err)
	require.NoError(t, h.Load(context.Background()))
	t.Cleanup(func() { _ = h.Unload() })
	return h
}

func compileHost(t *testing.T, h *Host) feature.Exports {
	t.Helper()
	exports, err := feature.Compile(h.Templates())
	require.NoError(t, err)
	return exports
}

type renderLog struct {
	lists [][]feature.ListItem
}

func (r *renderLog) render(items []feature.ListItem) {
	r.lists = append(r.lists, items)
}

func (r *renderLog) last() []feature.ListItem {
	if len(r.lists) == 0 {
		return nil
	}
	return r.lists[len(r.lists)-1]
}

func titles(items []feature.ListItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestNewHost(t *testing.T) {
	manifest := &Manifest{Name: "test", Main: "init.lua"}

	h, err := NewHost(manifest)
	require.NoError(t, err)
	assert.Equal(t, "test", h.Name())
	assert.Same(t, manifest, h.Manifest())
	assert.Equal(t, StateUnloaded, h.State())
	assert.Empty(t, h.Templates())

	_, err = NewHost(nil)
	assert.ErrorIs(t, err, ErrNilManifest)
}

func TestHostLoadUnload(t *testing.T) {
	h, err := NewHost(createTestPlugin(t, "test", `-- nothing declared`))
	require.NoError(t, err)

	require.NoError(t, h.Load(context.Background()))
	assert.Equal(t, StateLoaded, h.State())
	assert.ErrorIs(t, h.Load(context.Background()), ErrAlreadyLoaded)

	require.NoError(t, h.Unload())
	assert.Equal(t, StateUnloaded, h.State())
	assert.ErrorIs(t, h.Unload(), ErrNotLoaded)
}

func TestHostLoadCancelled(t *testing.T) {
	h, err := NewHost(createTestPlugin(t, "test", ``))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.Load(ctx), context.Canceled)
	assert.Equal(t, StateUnloaded, h.State())
}

func TestHostLoadError(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"syntax", `this is not lua`, "plugin test"},
		{"runtime", `error("boom")`, "boom"},
		{"missing code", `require("feature").none { handler = function() end }`, "code must be a non-empty string"},
		{"missing handler", `require("feature").none { code = "x" }`, "handler must be a function"},
		{"missing select", `require("feature").dynamic { code = "x", enter = function() end }`, "select must be a function"},
		{"item without handler", `require("feature").list { code = "x", items = { { title = "a" } } }`, "items[1] needs a handler function"},
		{"bad item", `require("feature").list { code = "x", items = { "a" } }`, "items[1] must be a table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHost(createTestPlugin(t, "test", tt.script))
			require.NoError(t, err)

			err = h.Load(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, StateError, h.State())
			assert.Equal(t, err, h.Error())
			assert.Empty(t, h.Templates())
		})
	}
}

func TestHostLoadTimeout(t *testing.T) {
	h, err := NewHost(createTestPlugin(t, "test", `while true do end`),
		WithHostExecutionTimeout(50*time.Millisecond))
	require.NoError(t, err)

	err = h.Load(context.Background())
	assert.ErrorIs(t, err, plua.ErrExecutionTimeout)
}

func TestHostNoneFeature(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Output: &buf})

	h := loadHost(t, `
		local feature = require("feature")
		feature.none {
			code = "hello",
			title = "Hello",
			handler = function(action)
				feature.log("hello", action.code, action.type, action.payload)
			end,
		}
		feature.none {
			code = "fail",
			handler = function(action) error("cannot " .. action.payload) end,
		}
	`, WithHostLogger(logger))

	exports := compileHost(t, h)
	entry, ok := exports.None("hello")
	require.True(t, ok)
	require.NoError(t, entry.Enter(feature.TextAction("hello", "hi")))
	assert.Contains(t, buf.String(), "hello hello text hi")
	assert.Contains(t, buf.String(), `"plugin":"test"`)

	fail, ok := exports.None("fail")
	require.True(t, ok)
	err := fail.Enter(feature.TextAction("fail", "fly"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `plugin test, feature "fail"`)
	assert.Contains(t, err.Error(), "cannot fly")
}

func TestHostFixedList(t *testing.T) {
	h := loadHost(t, `
		local feature = require("feature")
		feature.list {
			code = "colors",
			placeholder = "Pick a color",
			items = {
				{ title = "Red", description = "warm", hex = "#f00", handler = function() end },
				{ title = "Blue", description = "cold", handler = function(action)
					error("blue " .. action.payload)
				end },
			},
		}
	`)

	entry, ok := compileHost(t, h).List("colors")
	require.True(t, ok)
	assert.Equal(t, "Pick a color", entry.Placeholder())
	assert.False(t, entry.Dynamic())

	var r renderLog
	action := feature.TextAction("colors", "colors")
	require.NoError(t, entry.Enter(action, r.render))
	items := r.last()
	require.Len(t, items, 2)
	assert.Equal(t, []string{"Red", "Blue"}, titles(items))
	assert.Equal(t, "warm", items[0].Description)
	assert.Equal(t, "#f00", items[0].Extra["hex"])
	_, hasHandler := items[0].Extra["handler"]
	assert.False(t, hasHandler)

	require.NoError(t, entry.Search(action, "bl", r.render))
	assert.Equal(t, []string{"Blue"}, titles(r.last()))

	require.NoError(t, entry.Select(action, items[0]))
	err := entry.Select(action, items[1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blue colors")
}

func TestHostDynamicList(t *testing.T) {
	h := loadHost(t, `
		local feature = require("feature")
		local count = 0
		feature.dynamic {
			code = "search",
			placeholder = "Search",
			enter = function(action, render)
				count = count + 1
				render({
					{ title = "first " .. count, description = action.payload },
					{ title = "second", rank = count },
				})
			end,
			select = function(action, item)
				error("selected " .. item.title .. " rank " .. tostring(item.rank))
			end,
		}
	`)

	entry, ok := compileHost(t, h).List("search")
	require.True(t, ok)
	assert.True(t, entry.Dynamic())

	var r renderLog
	action := feature.TextAction("search", "query")
	require.NoError(t, entry.Enter(action, r.render))
	require.NoError(t, entry.Enter(action, r.render))
	items := r.last()
	assert.Equal(t, []string{"first 2", "second"}, titles(items))
	assert.Equal(t, "query", items[0].Description)

	var cached []feature.ListItem
	require.NoError(t, entry.Search(action, "", func(items []feature.ListItem) { cached = items }))
	assert.Equal(t, items, cached)

	require.NoError(t, entry.Search(action, "sec", r.render))
	assert.Equal(t, []string{"second"}, titles(r.last()))

	err := entry.Select(action, items[1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selected second rank 2")
}

func TestHostDynamicListOnlyEnterOnce(t *testing.T) {
	h := loadHost(t, `
		local feature = require("feature")
		local count = 0
		feature.dynamic {
			code = "once",
			only_enter_once = true,
			enter = function(action, render)
				count = count + 1
				render({ { title = "call " .. count } })
			end,
			select = function() end,
		}
	`)

	entry, ok := compileHost(t, h).List("once")
	require.True(t, ok)

	var r renderLog
	action := feature.TextAction("once", "once")
	require.NoError(t, entry.Enter(action, r.render))
	require.NoError(t, entry.Enter(action, r.render))
	require.Len(t, r.lists, 2)
	assert.Equal(t, []string{"call 1"}, titles(r.lists[1]))
}

func TestHostCustomSearch(t *testing.T) {
	h := loadHost(t, `
		local feature = require("feature")
		feature.dynamic {
			code = "echo",
			enter = function(action, render) render({}) end,
			search = function(action, query, render)
				render({ { title = action.code .. ":" .. query } })
			end,
			select = function() end,
		}
	`)

	entry, ok := compileHost(t, h).List("echo")
	require.True(t, ok)

	var r renderLog
	require.NoError(t, entry.Search(feature.TextAction("echo", "echo"), "abc", r.render))
	assert.Equal(t, []string{"echo:abc"}, titles(r.last()))
}

func TestHostRenderRejectsBadItems(t *testing.T) {
	h := loadHost(t, `
		local feature = require("feature")
		feature.dynamic {
			code = "bad",
			enter = function(action, render) render({ { title = {} } }) end,
			select = function() end,
		}
	`)

	entry, ok := compileHost(t, h).List("bad")
	require.True(t, ok)

	var r renderLog
	err := entry.Enter(feature.TextAction("bad", ""), r.render)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `feature "bad"`)
	assert.Empty(t, r.lists)
}

func TestHostCallbacksFailAfterUnload(t *testing.T) {
	h, err := NewHost(createTestPlugin(t, "test", `
		require("feature").none { code = "x", handler = function() end }
	`))
	require.NoError(t, err)
	require.NoError(t, h.Load(context.Background()))

	exports := compileHost(t, h)
	require.NoError(t, h.Unload())
	assert.Empty(t, h.Templates())

	entry, ok := exports.None("x")
	require.True(t, ok)
	assert.ErrorIs(t, entry.Enter(feature.TextAction("x", "")), plua.ErrStateClosed)
}

func TestHostCallbackTimeout(t *testing.T) {
	h := loadHost(t, `
		require("feature").none { code = "spin", handler = function() while true do end end }
	`, WithHostExecutionTimeout(50*time.Millisecond))

	entry, ok := compileHost(t, h).None("spin")
	require.True(t, ok)
	assert.ErrorIs(t, entry.Enter(feature.TextAction("spin", "")), plua.ErrExecutionTimeout)
}

func TestHostFeatures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "init.lua"), []byte(`
		local feature = require("feature")
		feature.none { code = "open", handler = function() end }
		feature.none {
			code = "derived",
			title = "Derived Title",
			description = "derived description",
			handler = function() end,
		}
	`), 0o644))
	manifest := NewManifestMinimal("demo", dir)
	manifest.Features = []host.FeatureSpec{
		{Code: "open", Explain: "Open something", Cmds: []any{"open", "打开"}},
	}

	h, err := NewHost(manifest)
	require.NoError(t, err)
	require.NoError(t, h.Load(context.Background()))
	defer h.Unload()

	features, err := h.Features()
	require.NoError(t, err)
	require.Len(t, features, 2)

	assert.Equal(t, "open", features[0].Code)
	assert.Equal(t, "Open something", features[0].Explain)
	require.Len(t, features[0].Cmds, 2)
	assert.Equal(t, "打开", features[0].Cmds[1].Label)

	assert.Equal(t, "derived", features[1].Code)
	assert.Equal(t, "demo derived description", features[1].Explain)
	require.Len(t, features[1].Cmds, 1)
	assert.Equal(t, "demo Derived Title", features[1].Cmds[0].Label)
}

func TestHostSandbox(t *testing.T) {
	h, err := NewHost(createTestPlugin(t, "test", `require("os")`))
	require.NoError(t, err)
	assert.Error(t, h.Load(context.Background()))

	h, err = NewHost(createTestPlugin(t, "test", `dofile("/etc/passwd")`))
	require.NoError(t, err)
	assert.Error(t, h.Load(context.Background()))
}
