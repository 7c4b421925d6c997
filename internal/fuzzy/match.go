package fuzzy

import (
	"strings"
	"unicode"
)

// Result is a successful match.
type Result struct {
	// Score is higher for better matches and at least 1.
	Score int

	// Matches are the rune indices of the matched characters.
	Matches []int
}

// Span returns the rune range [from, to) covering every matched rune.
func (r Result) Span() (from, to int) {
	if len(r.Matches) == 0 {
		return 0, 0
	}
	return r.Matches[0], r.Matches[len(r.Matches)-1] + 1
}

// Match matches query as a subsequence of text. Case is ignored unless
// caseSensitive is set.
func Match(text, query string, caseSensitive bool) (Result, bool) {
	query = strings.TrimSpace(query)
	if text == "" || query == "" {
		return Result{}, false
	}

	original := []rune(text)
	runes := original
	queryRunes := []rune(query)
	if !caseSensitive {
		runes = []rune(strings.ToLower(text))
		queryRunes = []rune(strings.ToLower(query))
	}
	// Lowercasing may change the rune count of some scripts.
	if len(runes) != len(original) {
		runes = original
	}

	matches := make([]int, 0, len(queryRunes))
	q := 0
	for i := 0; i < len(runes) && q < len(queryRunes); i++ {
		if runes[i] == queryRunes[q] {
			matches = append(matches, i)
			q++
		}
	}
	if q != len(queryRunes) {
		return Result{}, false
	}
	return Result{Score: score(queryRunes, original, runes, matches), Matches: matches}, true
}

// Scoring weights.
const (
	baseScore         = 100
	consecutiveBonus  = 20
	wordBoundaryBonus = 15
	prefixBonus       = 25
	exactPrefixBonus  = 50
	gapPenalty        = 2
	shortTextLength   = 20
)

func score(query, original, text []rune, matches []int) int {
	s := baseScore
	for i, idx := range matches {
		if i > 0 && idx == matches[i-1]+1 {
			s += consecutiveBonus
		}
		if isWordBoundary(original, idx) {
			s += wordBoundaryBonus
		}
	}

	first, last := matches[0], matches[len(matches)-1]
	if first == 0 {
		s += prefixBonus
	}
	if gap := last - first - len(matches) + 1; gap > 0 {
		s -= gap * gapPenalty
	}
	s -= first

	if len(text) < shortTextLength {
		s += shortTextLength - len(text)
	}
	if hasPrefix(text, query) {
		s += exactPrefixBonus
	}
	return max(s, 1)
}

func hasPrefix(text, prefix []rune) bool {
	if len(text) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if text[i] != r {
			return false
		}
	}
	return true
}

// isWordBoundary reports whether the rune at idx starts a word: the first
// rune, a rune after a space or punctuation, or a camelCase hump.
func isWordBoundary(runes []rune, idx int) bool {
	if idx == 0 {
		return true
	}
	if idx >= len(runes) {
		return false
	}
	prev, cur := runes[idx-1], runes[idx]
	if unicode.IsSpace(prev) || unicode.IsPunct(prev) {
		return true
	}
	return unicode.IsLower(prev) && unicode.IsUpper(cur)
}
