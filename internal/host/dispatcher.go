package host

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/trentlee0/utools-template/internal/feature"
	"github.com/trentlee0/utools-template/internal/logging"
)

// View is what a launcher displays for the open list feature.
type View struct {
	SessionID   string
	Code        string
	Placeholder string
	Items       []feature.ListItem
}

// RenderListener receives every accepted render. It may be called from
// any goroutine, including the producer's.
type RenderListener func(View)

// session is one opening of a list feature. Renders carry the session
// they were created for; once another session replaces it they are
// dropped.
type session struct {
	id     string
	code   string
	action feature.Action
	entry  *feature.ListEntry
	items  []feature.ListItem
}

// Dispatcher connects typed input to compiled features and keeps track of
// the list feature that is open.
type Dispatcher struct {
	mu        sync.Mutex
	exports   feature.Exports
	features  []Feature
	keywords  KeywordMatcher
	history   *History
	log       *logging.Logger
	goos      string
	current   *session
	listeners []RenderListener
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithKeywordMatcher replaces the substring keyword matcher.
func WithKeywordMatcher(m KeywordMatcher) Option {
	return func(d *Dispatcher) {
		d.keywords = m
	}
}

// WithHistory sets the history used to rank candidates.
func WithHistory(h *History) Option {
	return func(d *Dispatcher) {
		d.history = h
	}
}

// WithLogger attaches a logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		d.log = l
	}
}

// WithPlatform overrides the GOOS used to filter features.
func WithPlatform(goos string) Option {
	return func(d *Dispatcher) {
		d.goos = goos
	}
}

// NewDispatcher creates a dispatcher over compiled exports and their
// launcher metadata.
func NewDispatcher(exports feature.Exports, features []Feature, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		keywords: SubstringKeywords,
		history:  NewHistory(100),
		log:      logging.Nop(),
		goos:     runtime.GOOS,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.Reload(exports, features)
	return d
}

// Reload swaps in a new compilation. The open session survives only if
// its code is still a list feature.
func (d *Dispatcher) Reload(exports feature.Exports, features []Feature) {
	missing, unlisted := Reconcile(exports, features)
	for _, code := range missing {
		d.log.Warn("feature %q has no compiled template", code)
	}
	for _, code := range unlisted {
		d.log.Warn("template %q has no feature metadata and cannot be triggered", code)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.exports = exports
	d.features = features
	if d.current != nil {
		entry, ok := exports.List(d.current.code)
		if !ok {
			d.log.Debug("closing %q, removed by reload", d.current.code)
			d.current = nil
			return
		}
		d.current.entry = entry
	}
}

// Reconcile returns the feature codes without a template and the template
// codes without a feature.
func Reconcile(exports feature.Exports, features []Feature) (missing, unlisted []string) {
	seen := make(map[string]bool, len(features))
	for _, f := range features {
		seen[f.Code] = true
		if _, ok := exports[f.Code]; !ok {
			missing = append(missing, f.Code)
		}
	}
	for _, code := range exports.Codes() {
		if !seen[code] {
			unlisted = append(unlisted, code)
		}
	}
	return missing, unlisted
}

// Subscribe adds a render listener and returns a function removing it.
func (d *Dispatcher) Subscribe(l RenderListener) func() {
	if l == nil {
		return func() {}
	}
	d.mu.Lock()
	d.listeners = append(d.listeners, l)
	index := len(d.listeners) - 1
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if index < len(d.listeners) {
			d.listeners[index] = nil
		}
	}
}

// Features returns the launcher metadata.
func (d *Dispatcher) Features() []Feature {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Feature(nil), d.features...)
}

// Candidates returns the features the input can open, keywords first and
// recently opened features ahead of others of the same kind.
func (d *Dispatcher) Candidates(input string) []Candidate {
	d.mu.Lock()
	features := d.features
	exports := d.exports
	d.mu.Unlock()

	var out []Candidate
	for _, f := range features {
		if _, ok := exports[f.Code]; !ok || !f.SupportsPlatform(d.goos) {
			continue
		}
		if c, ok := matchFeature(f, input, d.keywords); ok {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := cmdRank(out[i].Cmd.Type), cmdRank(out[j].Cmd.Type)
		if ri != rj {
			return ri < rj
		}
		return recency(d.history.Position(out[i].Feature.Code)) < recency(d.history.Position(out[j].Feature.Code))
	})
	return out
}

func recency(pos int) int {
	if pos < 0 {
		return int(^uint(0) >> 1)
	}
	return pos
}

// Open runs a feature. No-UI features run to completion and leave any
// open list in place; list features become the open session and render
// their first list.
func (d *Dispatcher) Open(code string, action feature.Action) error {
	d.mu.Lock()
	entry, ok := d.exports[code]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFeature, code)
	}
	if action.Code == "" {
		action.Code = code
	}
	d.history.Add(code)

	switch e := entry.(type) {
	case *feature.NoneEntry:
		d.log.Debug("running %q", code)
		return e.Enter(action)
	case *feature.ListEntry:
		s := &session{id: uuid.NewString(), code: code, action: action, entry: e}
		d.mu.Lock()
		d.current = s
		d.mu.Unlock()
		d.log.Debug("opened %q in session %s", code, s.id)
		return e.Enter(action, d.renderer(s))
	default:
		return fmt.Errorf("%w: %q has unsupported entry %T", ErrUnknownFeature, code, entry)
	}
}

// Search asks the open list for the items matching query.
func (d *Dispatcher) Search(query string) error {
	s, entry, err := d.session()
	if err != nil {
		return err
	}
	return entry.Search(s.action, query, d.renderer(s))
}

// Select hands the displayed item at index to the open list.
func (d *Dispatcher) Select(index int) error {
	d.mu.Lock()
	s := d.current
	if s == nil {
		d.mu.Unlock()
		return ErrNoSession
	}
	if index < 0 || index >= len(s.items) {
		n := len(s.items)
		d.mu.Unlock()
		return fmt.Errorf("%w %d of %d", ErrNoSelection, index, n)
	}
	item, entry := s.items[index], s.entry
	d.mu.Unlock()

	return entry.Select(s.action, item)
}

// Close discards the open session. Renders still in flight for it are
// dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		d.log.Debug("closed %q", d.current.code)
	}
	d.current = nil
}

// Current returns the view of the open session.
func (d *Dispatcher) Current() (View, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return View{}, false
	}
	return d.current.view(), true
}

func (d *Dispatcher) session() (*session, *feature.ListEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return nil, nil, ErrNoSession
	}
	return d.current, d.current.entry, nil
}

func (d *Dispatcher) renderer(s *session) feature.RenderFunc {
	return func(items []feature.ListItem) {
		d.mu.Lock()
		if d.current != s {
			d.mu.Unlock()
			d.log.Debug("dropped render for stale session %s of %q", s.id, s.code)
			return
		}
		s.items = copyItems(items)
		view := s.view()
		listeners := append([]RenderListener(nil), d.listeners...)
		d.mu.Unlock()

		for _, l := range listeners {
			if l != nil {
				l(view)
			}
		}
	}
}

func (s *session) view() View {
	return View{
		SessionID:   s.id,
		Code:        s.code,
		Placeholder: s.entry.Placeholder(),
		Items:       copyItems(s.items),
	}
}

func copyItems(items []feature.ListItem) []feature.ListItem {
	out := make([]feature.ListItem, len(items))
	copy(out, items)
	return out
}
