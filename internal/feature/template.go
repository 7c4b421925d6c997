package feature

import "fmt"

// Handler runs a no-UI feature or a fixed-list item.
type Handler func(action Action) error

// ProducerFunc computes a dynamic list and delivers it through render,
// either before returning or at any later time.
type ProducerFunc func(action Action, render RenderFunc) error

// SelectFunc handles the item the user confirmed.
type SelectFunc func(action Action, item ListItem) error

// SearchFunc replaces the default list filtering of a template.
type SearchFunc func(action Action, query string, render RenderFunc) error

// Template is a feature declaration. The set of implementations is closed:
// NoneTemplate, FixedListTemplate and DynamicListTemplate. Compile also
// accepts pointers to them.
type Template interface {
	// FeatureCode returns the code the template is registered under.
	FeatureCode() string

	validate() error
	sealed()
}

// NoneTemplate declares a feature without UI.
type NoneTemplate struct {
	Code    string
	Handler Handler
}

// FixedItem is an item of a fixed list together with its handler.
type FixedItem struct {
	ListItem
	Handler Handler
}

// FixedListTemplate declares a list whose items never change.
type FixedListTemplate struct {
	Code        string
	Placeholder string
	Items       []FixedItem

	// Search overrides the default filter when set.
	Search SearchFunc

	// SearchDescription makes the default filter consider Description.
	SearchDescription bool
}

// DynamicListTemplate declares a list computed by a producer on entry.
type DynamicListTemplate struct {
	Code        string
	Placeholder string
	Enter       ProducerFunc
	Select      SelectFunc

	// Search overrides the default filter when set.
	Search SearchFunc

	// OnlyEnterOnce serves the first non-empty delivery on every later
	// entry instead of calling Enter again.
	OnlyEnterOnce bool

	// SearchDescription makes the default filter consider Description.
	SearchDescription bool
}

// FeatureCode implements Template.
func (t NoneTemplate) FeatureCode() string { return t.Code }

// FeatureCode implements Template.
func (t FixedListTemplate) FeatureCode() string { return t.Code }

// FeatureCode implements Template.
func (t DynamicListTemplate) FeatureCode() string { return t.Code }

func (NoneTemplate) sealed()        {}
func (FixedListTemplate) sealed()   {}
func (DynamicListTemplate) sealed() {}

func invalid(code, format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidTemplate, code, fmt.Sprintf(format, args...))
}

func (t NoneTemplate) validate() error {
	if t.Code == "" {
		return invalid(t.Code, "code is required")
	}
	if t.Handler == nil {
		return invalid(t.Code, "handler is required")
	}
	return nil
}

func (t FixedListTemplate) validate() error {
	if t.Code == "" {
		return invalid(t.Code, "code is required")
	}
	for i, it := range t.Items {
		if it.Handler == nil {
			return invalid(t.Code, "item %d (%q) has no handler", i, it.Title)
		}
	}
	return nil
}

func (t DynamicListTemplate) validate() error {
	if t.Code == "" {
		return invalid(t.Code, "code is required")
	}
	if t.Enter == nil {
		return invalid(t.Code, "enter is required")
	}
	if t.Select == nil {
		return invalid(t.Code, "select is required")
	}
	return nil
}
