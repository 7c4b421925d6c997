package fuzzy

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/trentlee0/utools-template/internal/feature"
)

// DefaultCacheSize is the number of memoized matches kept by a Searcher.
const DefaultCacheSize = 1000

// Options configures a Searcher.
type Options struct {
	// CaseSensitive disables case folding.
	CaseSensitive bool

	// MinScore drops weaker matches.
	MinScore int

	// CacheSize bounds memoized matches. Zero or less disables caching.
	CacheSize int
}

type cacheKey struct {
	text, query string
}

type cacheEntry struct {
	result Result
	ok     bool
}

// Searcher is a fuzzy matcher with a bounded result cache. It is safe for
// concurrent use.
type Searcher struct {
	opts  Options
	cache *lru.Cache[cacheKey, cacheEntry]
}

// NewSearcher creates a searcher.
func NewSearcher(opts Options) *Searcher {
	s := &Searcher{opts: opts}
	if opts.CacheSize > 0 {
		s.cache, _ = lru.New[cacheKey, cacheEntry](opts.CacheSize)
	}
	return s
}

// Match matches query against text and applies MinScore.
func (s *Searcher) Match(text, query string) (Result, bool) {
	key := cacheKey{text, query}
	if s.cache != nil {
		if e, ok := s.cache.Get(key); ok {
			return e.result, e.ok
		}
	}

	r, ok := Match(text, query, s.opts.CaseSensitive)
	if ok && r.Score < s.opts.MinScore {
		r, ok = Result{}, false
	}
	if s.cache != nil {
		s.cache.Add(key, cacheEntry{result: r, ok: ok})
	}
	return r, ok
}

// Factory adapts the searcher to feature.WithSearcher.
func (s *Searcher) Factory() feature.SearcherFactory {
	return s.For
}

// For returns the item predicate. withDescription extends matching to
// Description.
func (s *Searcher) For(withDescription bool) feature.Searcher {
	return func(item feature.ListItem, word string) bool {
		if _, ok := s.Match(item.Title, word); ok {
			return true
		}
		if withDescription {
			_, ok := s.Match(item.Description, word)
			return ok
		}
		return false
	}
}

// MatchKeyword reports whether input selects a launcher keyword.
func (s *Searcher) MatchKeyword(keyword, input string) bool {
	_, ok := s.Match(keyword, input)
	return ok
}

// Highlight returns the rune range [from, to) spanning the matched runes.
func (s *Searcher) Highlight(text, query string) (from, to int, ok bool) {
	r, ok := s.Match(text, query)
	if !ok {
		return 0, 0, false
	}
	from, to = r.Span()
	return from, to, true
}
