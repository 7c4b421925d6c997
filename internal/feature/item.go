package feature

// ListItem is one displayed row of a list feature.
//
// Extra carries producer-defined fields back to Select untouched.
type ListItem struct {
	Title       string
	Description string
	Icon        string
	Extra       map[string]any

	// handler is attached to items of fixed lists by Compile.
	handler Handler
}

// RenderFunc replaces the list currently displayed by the host.
type RenderFunc func(items []ListItem)

// Get returns a named field: "title", "description", "icon", or a key of
// Extra.
func (it ListItem) Get(field string) (any, bool) {
	switch field {
	case "title":
		return it.Title, true
	case "description":
		return it.Description, true
	case "icon":
		return it.Icon, true
	}
	v, ok := it.Extra[field]
	return v, ok
}

func cloneItems(items []ListItem) []ListItem {
	out := make([]ListItem, len(items))
	copy(out, items)
	return out
}
