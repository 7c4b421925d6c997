package pinyin

import (
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/trentlee0/utools-template/internal/feature"
)

// DefaultCacheSize bounds the number of memoized romanizations.
const DefaultCacheSize = 4096

// Searcher filters list items by romanized title and description.
//
// An item matches when the plain case-insensitive substring test passes or
// when Match finds the word in the item's syllables. Syllables come from
// Romanize and are memoized per string.
type Searcher struct {
	cache *lru.Cache[string, []string]
	opts  Options
}

// NewSearcher creates a searcher. cacheSize <= 0 uses DefaultCacheSize.
func NewSearcher(cacheSize int, opts Options) *Searcher {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []string](cacheSize)
	if err != nil {
		// Only returned for non-positive sizes, excluded above.
		panic(err)
	}
	return &Searcher{cache: cache, opts: opts}
}

// Syllables returns the memoized romanization of text. Under CaseUpper the
// syllables are uppercased so that folded patterns can meet them.
func (s *Searcher) Syllables(text string) []string {
	if syl, ok := s.cache.Get(text); ok {
		return syl
	}
	syl := Romanize(text)
	if s.opts.Case == CaseUpper {
		for i, v := range syl {
			syl[i] = strings.ToUpper(v)
		}
	}
	s.cache.Add(text, syl)
	return syl
}

// MatchText romanizes text and matches word against it.
func (s *Searcher) MatchText(text, word string) (Span, bool) {
	if text == "" || word == "" {
		return Span{}, false
	}
	return Match(s.Syllables(text), word, s.opts)
}

// Factory adapts the searcher to feature.WithSearcher.
func (s *Searcher) Factory() feature.SearcherFactory {
	return s.For
}

// For returns the item predicate. withDescription extends matching to
// Description.
func (s *Searcher) For(withDescription bool) feature.Searcher {
	substring := feature.SubstringSearcher(withDescription)
	return func(item feature.ListItem, word string) bool {
		if substring(item, word) {
			return true
		}
		if item.Title == "" {
			return false
		}
		if _, ok := s.MatchText(item.Title, word); ok {
			return true
		}
		if withDescription {
			_, ok := s.MatchText(item.Description, word)
			return ok
		}
		return false
	}
}

// MatchKeyword reports whether input selects a launcher keyword, either as
// a case-insensitive substring or phonetically.
func (s *Searcher) MatchKeyword(keyword, input string) bool {
	if strings.Contains(strings.ToLower(keyword), strings.ToLower(input)) {
		return true
	}
	_, ok := s.MatchText(keyword, input)
	return ok
}

// Highlight returns the rune range [from, to) of text that word matches,
// preferring a case-insensitive substring over a phonetic match.
func (s *Searcher) Highlight(text, word string) (from, to int, ok bool) {
	if text == "" || word == "" {
		return 0, 0, false
	}
	lower := strings.ToLower(text)
	if i := strings.Index(lower, strings.ToLower(word)); i >= 0 {
		from = utf8.RuneCountInString(lower[:i])
		return from, from + utf8.RuneCountInString(strings.ToLower(word)), true
	}

	span, ok := s.MatchText(text, word)
	if !ok {
		return 0, 0, false
	}
	segs := Segments(text)
	if span.From < 0 || span.To >= len(segs) || span.From > span.To {
		return 0, 0, false
	}
	return segs[span.From].From, segs[span.To].To, true
}
