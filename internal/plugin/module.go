package plugin

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/trentlee0/utools-template/internal/feature"
	"github.com/trentlee0/utools-template/internal/host"
	plua "github.com/trentlee0/utools-template/internal/plugin/lua"
)

// ModuleName is the name scripts pass to require.
const ModuleName = "feature"

// loadModule is the loader of the feature module. Each declaration
// function takes one table and records a template on the host.
func (h *Host) loadModule(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"none":    h.declareNone,
		"list":    h.declareList,
		"dynamic": h.declareDynamic,
		"log":     h.luaLog,
	})
	L.Push(mod)
	return 1
}

func (h *Host) declareNone(L *lua.LState) int {
	t := L.CheckTable(1)
	code := requireCode(L, h.bridge, t)
	handler := requireFunc(L, h.bridge, t, "handler")

	h.declare(feature.NoneTemplate{
		Code:    code,
		Handler: h.handler(code, handler),
	}, h.meta(t, code))
	return 0
}

func (h *Host) declareList(L *lua.LState) int {
	t := L.CheckTable(1)
	code := requireCode(L, h.bridge, t)

	tmpl := feature.FixedListTemplate{Code: code}
	tmpl.Placeholder, _ = h.bridge.GetTableString(t, "placeholder")
	tmpl.SearchDescription, _ = h.bridge.GetTableBool(t, "search_description")
	if fn, ok := h.bridge.GetTableFunc(t, "search"); ok {
		tmpl.Search = h.search(code, fn)
	}

	if rows, ok := h.bridge.GetTableTable(t, "items"); ok {
		for i := 1; i <= rows.Len(); i++ {
			row, ok := rows.RawGetInt(i).(*lua.LTable)
			if !ok {
				L.ArgError(1, fmt.Sprintf("items[%d] must be a table", i))
			}
			item, err := h.bridge.TableToItem(row, "handler")
			if err != nil {
				L.ArgError(1, fmt.Sprintf("items[%d]: %v", i, err))
			}
			fn, ok := h.bridge.GetTableFunc(row, "handler")
			if !ok {
				L.ArgError(1, fmt.Sprintf("items[%d] needs a handler function", i))
			}
			tmpl.Items = append(tmpl.Items, feature.FixedItem{
				ListItem: item,
				Handler:  h.handler(code, fn),
			})
		}
	}

	h.declare(tmpl, h.meta(t, code))
	return 0
}

func (h *Host) declareDynamic(L *lua.LState) int {
	t := L.CheckTable(1)
	code := requireCode(L, h.bridge, t)
	enter := requireFunc(L, h.bridge, t, "enter")
	sel := requireFunc(L, h.bridge, t, "select")

	tmpl := feature.DynamicListTemplate{
		Code:   code,
		Enter:  h.producer(code, enter),
		Select: h.selector(code, sel),
	}
	tmpl.Placeholder, _ = h.bridge.GetTableString(t, "placeholder")
	tmpl.OnlyEnterOnce, _ = h.bridge.GetTableBool(t, "only_enter_once")
	tmpl.SearchDescription, _ = h.bridge.GetTableBool(t, "search_description")
	if fn, ok := h.bridge.GetTableFunc(t, "search"); ok {
		tmpl.Search = h.search(code, fn)
	}

	h.declare(tmpl, h.meta(t, code))
	return 0
}

func (h *Host) luaLog(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	h.log.Info("%s", strings.Join(parts, " "))
	return 0
}

func requireCode(L *lua.LState, b *plua.Bridge, t *lua.LTable) string {
	code, ok := b.GetTableString(t, "code")
	if !ok || code == "" {
		L.ArgError(1, "code must be a non-empty string")
	}
	return code
}

func requireFunc(L *lua.LState, b *plua.Bridge, t *lua.LTable, key string) *lua.LFunction {
	fn, ok := b.GetTableFunc(t, key)
	if !ok {
		L.ArgError(1, key+" must be a function")
	}
	return fn
}

func (h *Host) meta(t *lua.LTable, code string) host.Meta {
	m := host.Meta{Code: code}
	m.Title, _ = h.bridge.GetTableString(t, "title")
	m.Description, _ = h.bridge.GetTableString(t, "description")
	m.Icon, _ = h.bridge.GetTableString(t, "icon")
	return m
}

// call runs fn inside the state it was declared in. Script errors are
// annotated with the plugin and feature code.
func (h *Host) call(st *plua.State, code string, fn *lua.LFunction, args func(L *lua.LState) []lua.LValue) error {
	err := st.Exec(func(L *lua.LState) error {
		_, err := plua.Call(L, fn, 0, args(L)...)
		return err
	})
	if err != nil {
		return fmt.Errorf("plugin %s, feature %q: %w", h.name, code, err)
	}
	return nil
}

// renderFunc exposes render to scripts as a function taking a list of
// item tables.
func renderFunc(L *lua.LState, b *plua.Bridge, render feature.RenderFunc) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		items, err := b.TableToItems(L.CheckAny(1))
		if err != nil {
			L.ArgError(1, err.Error())
		}
		render(items)
		return 0
	})
}

// Adapters bind the state and bridge current at declaration time. After an
// unload they fail with the closed state's error.

func (h *Host) handler(code string, fn *lua.LFunction) feature.Handler {
	st, b := h.state, h.bridge
	return func(action feature.Action) error {
		return h.call(st, code, fn, func(*lua.LState) []lua.LValue {
			return []lua.LValue{b.ActionToTable(action)}
		})
	}
}

func (h *Host) producer(code string, fn *lua.LFunction) feature.ProducerFunc {
	st, b := h.state, h.bridge
	return func(action feature.Action, render feature.RenderFunc) error {
		return h.call(st, code, fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{b.ActionToTable(action), renderFunc(L, b, render)}
		})
	}
}

func (h *Host) selector(code string, fn *lua.LFunction) feature.SelectFunc {
	st, b := h.state, h.bridge
	return func(action feature.Action, item feature.ListItem) error {
		return h.call(st, code, fn, func(*lua.LState) []lua.LValue {
			return []lua.LValue{b.ActionToTable(action), b.ItemToTable(item)}
		})
	}
}

func (h *Host) search(code string, fn *lua.LFunction) feature.SearchFunc {
	st, b := h.state, h.bridge
	return func(action feature.Action, query string, render feature.RenderFunc) error {
		return h.call(st, code, fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{b.ActionToTable(action), lua.LString(query), renderFunc(L, b, render)}
		})
	}
}
