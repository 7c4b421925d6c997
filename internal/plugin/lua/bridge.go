package lua

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/trentlee0/utools-template/internal/feature"
)

// Item fields with a ListItem counterpart. Every other key goes to Extra.
var itemFields = map[string]bool{
	"title":       true,
	"description": true,
	"icon":        true,
}

// Bridge converts values between Lua and Go.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value to a Go value. Functions and userdata
// are returned as the Lua value itself so they can be handed back later.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return b.toGoValue(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toGoValue(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil, *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return b.tableToGo(v, visited)
	default:
		return lv
	}
}

// tableToGo converts a sequence to []any and anything else to
// map[string]any.
func (b *Bridge) tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	if n := t.Len(); n > 0 && countKeys(t) == n {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = b.toGoValue(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		m[keyString(k)] = b.toGoValue(v, visited)
	})
	return m
}

func countKeys(t *lua.LTable) int {
	n := 0
	t.ForEach(func(_, _ lua.LValue) { n++ })
	return n
}

func keyString(k lua.LValue) string {
	if n, ok := k.(lua.LNumber); ok {
		return fmt.Sprint(float64(n))
	}
	return k.String()
}

// ToLuaValue converts a Go value to a Lua value.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []string:
		t := b.L.NewTable()
		for i, s := range val {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	case []any:
		t := b.L.NewTable()
		for i, e := range val {
			t.RawSetInt(i+1, b.ToLuaValue(e))
		}
		return t
	case map[string]any:
		t := b.L.NewTable()
		for k, e := range val {
			t.RawSetString(k, b.ToLuaValue(e))
		}
		return t
	case map[string]string:
		t := b.L.NewTable()
		for k, e := range val {
			t.RawSetString(k, lua.LString(e))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

// TableToItem converts an item table. Keys named in skip are ignored.
func (b *Bridge) TableToItem(t *lua.LTable, skip ...string) (feature.ListItem, error) {
	var item feature.ListItem
	var err error
	t.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		name := string(key)
		for _, s := range skip {
			if name == s {
				return
			}
		}
		if itemFields[name] {
			var s string
			s, err = fieldString(name, v)
			switch name {
			case "title":
				item.Title = s
			case "description":
				item.Description = s
			case "icon":
				item.Icon = s
			}
			return
		}
		if item.Extra == nil {
			item.Extra = make(map[string]any)
		}
		item.Extra[name] = b.ToGoValue(v)
	})
	return item, err
}

func fieldString(name string, v lua.LValue) (string, error) {
	switch v := v.(type) {
	case *lua.LNilType:
		return "", nil
	case lua.LString:
		return string(v), nil
	case lua.LNumber:
		return v.String(), nil
	}
	return "", fmt.Errorf("item field %q must be a string, got %s", name, v.Type())
}

// TableToItems converts a sequence of item tables.
func (b *Bridge) TableToItems(lv lua.LValue) ([]feature.ListItem, error) {
	t, ok := lv.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: items are %s", ErrNotTable, lv.Type())
	}
	items := make([]feature.ListItem, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		row, ok := t.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is %s", ErrNotTable, i, t.RawGetInt(i).Type())
		}
		item, err := b.TableToItem(row)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// ItemToTable converts an item back to the table shape scripts render.
func (b *Bridge) ItemToTable(item feature.ListItem) *lua.LTable {
	t := b.L.NewTable()
	keys := make([]string, 0, len(item.Extra))
	for k := range item.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.RawSetString(k, b.ToLuaValue(item.Extra[k]))
	}
	t.RawSetString("title", lua.LString(item.Title))
	if item.Description != "" {
		t.RawSetString("description", lua.LString(item.Description))
	}
	if item.Icon != "" {
		t.RawSetString("icon", lua.LString(item.Icon))
	}
	return t
}

// ActionToTable converts an action. Files and window payloads use the
// launcher's camelCase field names.
func (b *Bridge) ActionToTable(a feature.Action) *lua.LTable {
	t := b.L.NewTable()
	t.RawSetString("code", lua.LString(a.Code))
	t.RawSetString("type", lua.LString(a.Type))

	if files, ok := a.Files(); ok {
		list := b.L.NewTable()
		for i, f := range files {
			ft := b.L.NewTable()
			ft.RawSetString("isFile", lua.LBool(f.IsFile))
			ft.RawSetString("isDirectory", lua.LBool(f.IsDirectory))
			ft.RawSetString("name", lua.LString(f.Name))
			ft.RawSetString("path", lua.LString(f.Path))
			list.RawSetInt(i+1, ft)
		}
		t.RawSetString("payload", list)
		return t
	}
	if w, ok := a.Window(); ok {
		wt := b.L.NewTable()
		wt.RawSetString("id", lua.LNumber(w.ID))
		wt.RawSetString("class", lua.LString(w.Class))
		wt.RawSetString("title", lua.LString(w.Title))
		wt.RawSetString("x", lua.LNumber(w.X))
		wt.RawSetString("y", lua.LNumber(w.Y))
		wt.RawSetString("width", lua.LNumber(w.Width))
		wt.RawSetString("height", lua.LNumber(w.Height))
		wt.RawSetString("appPath", lua.LString(w.AppPath))
		wt.RawSetString("pid", lua.LNumber(w.PID))
		wt.RawSetString("app", lua.LString(w.App))
		t.RawSetString("payload", wt)
		return t
	}
	t.RawSetString("payload", b.ToLuaValue(a.Payload))
	return t
}

// GetTableString returns a string field, or false when it is absent or
// has another type.
func (b *Bridge) GetTableString(t *lua.LTable, key string) (string, bool) {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

// GetTableBool returns a boolean field.
func (b *Bridge) GetTableBool(t *lua.LTable, key string) (bool, bool) {
	if v, ok := t.RawGetString(key).(lua.LBool); ok {
		return bool(v), true
	}
	return false, false
}

// GetTableFunc returns a function field.
func (b *Bridge) GetTableFunc(t *lua.LTable, key string) (*lua.LFunction, bool) {
	fn, ok := t.RawGetString(key).(*lua.LFunction)
	return fn, ok
}

// GetTableTable returns a table field.
func (b *Bridge) GetTableTable(t *lua.LTable, key string) (*lua.LTable, bool) {
	tbl, ok := t.RawGetString(key).(*lua.LTable)
	return tbl, ok
}
