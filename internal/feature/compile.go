package feature

import (
	"fmt"

	"github.com/trentlee0/utools-template/internal/logging"
)

// CompileOption configures Compile.
type CompileOption func(*compiler)

// WithStrict rejects templates that reuse a code.
func WithStrict() CompileOption {
	return func(c *compiler) {
		c.strict = true
	}
}

// WithSearcher replaces the default substring predicate of every list
// without a custom search function.
func WithSearcher(f SearcherFactory) CompileOption {
	return func(c *compiler) {
		if f != nil {
			c.searcher = f
		}
	}
}

// WithLogger attaches a logger for compile diagnostics.
func WithLogger(l *logging.Logger) CompileOption {
	return func(c *compiler) {
		c.log = l.WithComponent("feature")
	}
}

type compiler struct {
	strict   bool
	searcher SearcherFactory
	log      *logging.Logger
	slots    *slotTable
}

// Compile turns templates into runtime entries keyed by code.
func Compile(templates []Template, opts ...CompileOption) (Exports, error) {
	c := &compiler{
		searcher: SubstringSearcher,
		log:      logging.Nop(),
		slots:    newSlotTable(),
	}
	for _, opt := range opts {
		opt(c)
	}

	exports := make(Exports, len(templates))
	for _, t := range templates {
		t, err := deref(t)
		if err != nil {
			return nil, err
		}
		if err := t.validate(); err != nil {
			return nil, err
		}

		code := t.FeatureCode()
		if _, exists := exports[code]; exists {
			if c.strict {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateCode, code)
			}
			c.log.Debug("feature %q redefined, keeping the later template", code)
		}

		switch t := t.(type) {
		case NoneTemplate:
			exports[code] = c.none(t)
		case FixedListTemplate:
			exports[code] = c.fixedList(t)
		case DynamicListTemplate:
			exports[code] = c.dynamicList(t)
		}
		c.log.Debug("compiled feature %q (%T)", code, t)
	}
	return exports, nil
}

// deref resolves template pointers to their values. Nil templates and
// types outside this package are invalid.
func deref(t Template) (Template, error) {
	switch p := t.(type) {
	case NoneTemplate, FixedListTemplate, DynamicListTemplate:
		return t, nil
	case *NoneTemplate:
		if p != nil {
			return *p, nil
		}
	case *FixedListTemplate:
		if p != nil {
			return *p, nil
		}
	case *DynamicListTemplate:
		if p != nil {
			return *p, nil
		}
	case nil:
	default:
		return nil, fmt.Errorf("%w: unsupported template %T", ErrInvalidTemplate, t)
	}
	return nil, fmt.Errorf("%w: nil template", ErrInvalidTemplate)
}

func (c *compiler) none(t NoneTemplate) *NoneEntry {
	return &NoneEntry{code: t.Code, handler: t.Handler}
}

func (c *compiler) fixedList(t FixedListTemplate) *ListEntry {
	items := make([]ListItem, len(t.Items))
	for i, fi := range t.Items {
		it := fi.ListItem
		it.handler = fi.Handler
		items[i] = it
	}

	search := t.Search
	if search == nil {
		match := c.searcher(t.SearchDescription)
		search = func(_ Action, query string, render RenderFunc) error {
			render(Filter(items, query, match))
			return nil
		}
	}

	return &ListEntry{
		code:        t.Code,
		placeholder: t.Placeholder,
		enter: func(_ Action, render RenderFunc) error {
			render(items)
			return nil
		},
		search: search,
		sel: func(action Action, item ListItem) error {
			h := item.handler
			if h == nil {
				h = lookupHandler(items, item)
			}
			if h == nil {
				return fmt.Errorf("%w: %q in %q", ErrUnknownItem, item.Title, t.Code)
			}
			return h(action)
		},
	}
}

// lookupHandler resolves items the host rebuilt instead of passing back
// verbatim.
func lookupHandler(items []ListItem, item ListItem) Handler {
	for _, it := range items {
		if it.Title == item.Title && it.Description == item.Description {
			return it.handler
		}
	}
	return nil
}

func (c *compiler) dynamicList(t DynamicListTemplate) *ListEntry {
	s := c.slots.reset(t.Code)
	log := c.log.WithField("code", t.Code)

	search := t.Search
	if search == nil {
		match := c.searcher(t.SearchDescription)
		search = func(_ Action, query string, render RenderFunc) error {
			items, ok := s.load()
			if !ok {
				return nil
			}
			render(Filter(items, query, match))
			return nil
		}
	}

	return &ListEntry{
		code:        t.Code,
		placeholder: t.Placeholder,
		enter: func(action Action, render RenderFunc) error {
			if t.OnlyEnterOnce {
				if items, ok := s.load(); ok && len(items) > 0 {
					log.Debug("serving cached list (%d items)", len(items))
					render(items)
					return nil
				}
			}
			return t.Enter(action, func(items []ListItem) {
				s.store(items)
				render(items)
			})
		},
		search: search,
		sel:    t.Select,
		slot:   s,
	}
}
