package feature

import (
	"sort"
	"sync"
)

// Mode is the shape of a compiled entry.
type Mode string

// Entry modes.
const (
	ModeNone Mode = "none"
	ModeList Mode = "list"
)

// Entry is a compiled feature. It is either a *NoneEntry or a *ListEntry.
type Entry interface {
	Mode() Mode
	Code() string
	sealed()
}

// Exports maps feature codes to compiled entries.
type Exports map[string]Entry

// Codes returns the registered codes in sorted order.
func (e Exports) Codes() []string {
	codes := make([]string, 0, len(e))
	for code := range e {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// None returns the no-UI entry for code.
func (e Exports) None(code string) (*NoneEntry, bool) {
	n, ok := e[code].(*NoneEntry)
	return n, ok
}

// List returns the list entry for code.
func (e Exports) List(code string) (*ListEntry, bool) {
	l, ok := e[code].(*ListEntry)
	return l, ok
}

// NoneEntry runs a handler on entry.
type NoneEntry struct {
	code    string
	handler Handler
}

// Mode implements Entry.
func (e *NoneEntry) Mode() Mode { return ModeNone }

// Code implements Entry.
func (e *NoneEntry) Code() string { return e.code }

func (*NoneEntry) sealed() {}

// Enter runs the feature.
func (e *NoneEntry) Enter(action Action) error {
	return e.handler(action)
}

// ListEntry is a compiled fixed or dynamic list.
type ListEntry struct {
	code        string
	placeholder string
	enter       func(Action, RenderFunc) error
	search      func(Action, string, RenderFunc) error
	sel         func(Action, ListItem) error

	// slot is nil for fixed lists.
	slot *slot
}

// Mode implements Entry.
func (e *ListEntry) Mode() Mode { return ModeList }

// Code implements Entry.
func (e *ListEntry) Code() string { return e.code }

func (*ListEntry) sealed() {}

// Placeholder is the hint shown in an empty search box.
func (e *ListEntry) Placeholder() string { return e.placeholder }

// Dynamic reports whether the list is computed by a producer.
func (e *ListEntry) Dynamic() bool { return e.slot != nil }

// Enter renders the list for a fresh entry.
func (e *ListEntry) Enter(action Action, render RenderFunc) error {
	return e.enter(action, deliver(render))
}

// Search renders the items matching query.
func (e *ListEntry) Search(action Action, query string, render RenderFunc) error {
	return e.search(action, query, deliver(render))
}

// Select handles the item the user confirmed. item must be passed back as
// it was rendered.
func (e *ListEntry) Select(action Action, item ListItem) error {
	return e.sel(action, item)
}

// deliver wraps the host's render callback. Every render receives its own
// copy, so hosts may keep or modify what they are given.
func deliver(render RenderFunc) RenderFunc {
	if render == nil {
		return func([]ListItem) {}
	}
	return func(items []ListItem) {
		render(cloneItems(items))
	}
}

// slot holds the last list delivered by one dynamic producer.
type slot struct {
	mu    sync.Mutex
	items []ListItem
	set   bool
}

func (s *slot) store(items []ListItem) {
	s.mu.Lock()
	s.items = cloneItems(items)
	s.set = true
	s.mu.Unlock()
}

// load returns the stored list itself. It is never modified in place.
func (s *slot) load() ([]ListItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return nil, false
	}
	return s.items, true
}

// slotTable owns the cache slots of one compilation, keyed by code.
type slotTable struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func newSlotTable() *slotTable {
	return &slotTable{slots: make(map[string]*slot)}
}

// reset gives code a fresh slot, dropping any slot from an overwritten
// template with the same code.
func (t *slotTable) reset(code string) *slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &slot{}
	t.slots[code] = s
	return s
}
