package feature

import (
	"fmt"
	"strings"
)

// Searcher reports whether item matches a single search word.
type Searcher func(item ListItem, word string) bool

// SearcherFactory builds the default predicate of a list. withDescription
// is the template's SearchDescription flag.
type SearcherFactory func(withDescription bool) Searcher

// SubstringSearcher matches word case-insensitively as a substring of Title,
// and of Description when withDescription is set. Items without a title
// never match.
func SubstringSearcher(withDescription bool) Searcher {
	return func(item ListItem, word string) bool {
		if item.Title == "" {
			return false
		}
		word = strings.ToLower(word)
		if strings.Contains(strings.ToLower(item.Title), word) {
			return true
		}
		return withDescription && strings.Contains(strings.ToLower(item.Description), word)
	}
}

// FieldSearcher matches word case-insensitively as a substring of any of the
// named fields (see ListItem.Get). Non-string fields are formatted with %v.
func FieldSearcher(fields ...string) Searcher {
	return func(item ListItem, word string) bool {
		word = strings.ToLower(word)
		for _, f := range fields {
			v, ok := item.Get(f)
			if !ok || v == nil {
				continue
			}
			s, isString := v.(string)
			if !isString {
				s = fmt.Sprint(v)
			}
			if strings.Contains(strings.ToLower(s), word) {
				return true
			}
		}
		return false
	}
}

// Filter returns the items matching query, in their original order. An
// empty query keeps every item. The result is never nil.
func Filter(items []ListItem, query string, match Searcher) []ListItem {
	if query == "" {
		return cloneItems(items)
	}
	out := make([]ListItem, 0, len(items))
	for _, it := range items {
		if match(it, query) {
			out = append(out, it)
		}
	}
	return out
}

// SearchList keeps the items matching every word. Empty words are ignored.
func SearchList(items []ListItem, match Searcher, words ...string) []ListItem {
	out := cloneItems(items)
	for _, w := range words {
		out = Filter(out, w, match)
	}
	return out
}
