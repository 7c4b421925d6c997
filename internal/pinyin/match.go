package pinyin

import (
	"strings"
	"unicode/utf8"
)

// Case selects how the pattern is folded before matching.
type Case uint8

const (
	// CaseLower lowercases the pattern. This is the default.
	CaseLower Case = iota

	// CaseUpper uppercases the pattern.
	CaseUpper

	// CaseSensitive leaves the pattern untouched.
	CaseSensitive
)

// String returns the option name used in configuration files.
func (c Case) String() string {
	switch c {
	case CaseLower:
		return "lower"
	case CaseUpper:
		return "upper"
	case CaseSensitive:
		return "sensitive"
	default:
		return "unknown"
	}
}

// ParseCase parses a case mode name. Unknown names fall back to CaseLower.
func ParseCase(s string) Case {
	switch strings.ToLower(s) {
	case "upper":
		return CaseUpper
	case "sensitive":
		return CaseSensitive
	default:
		return CaseLower
	}
}

// DefaultSeparator splits joined syllable strings.
const DefaultSeparator = " "

// Options configures Match.
type Options struct {
	// Case folds the pattern. Syllables are compared as given.
	Case Case

	// Separator splits the input of MatchJoined. Empty means DefaultSeparator.
	Separator string
}

// Span is an inclusive range of syllable indices.
type Span struct {
	From int
	To   int
}

// Len returns the number of syllables covered.
func (s Span) Len() int {
	return s.To - s.From + 1
}

// Contains reports whether syllable i is inside the span.
func (s Span) Contains(i int) bool {
	return i >= s.From && i <= s.To
}

func (o Options) fold(pattern string) string {
	switch o.Case {
	case CaseUpper:
		return strings.ToUpper(pattern)
	case CaseSensitive:
		return pattern
	default:
		return strings.ToLower(pattern)
	}
}

// MatchJoined splits joined on opts.Separator and calls Match.
func MatchJoined(joined, pattern string, opts Options) (Span, bool) {
	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	if joined == "" {
		return Span{}, false
	}
	return Match(strings.Split(joined, sep), pattern, opts)
}

// Match reports where pattern matches the syllable sequence.
//
// Empty syllable sequences and empty patterns never match.
func Match(syllables []string, pattern string, opts Options) (Span, bool) {
	pattern = opts.fold(pattern)
	if pattern == "" || len(syllables) == 0 {
		return Span{}, false
	}

	if span, ok := matchPrefix(syllables, pattern); ok {
		return span, true
	}
	if span, ok := matchRun(syllables, pattern); ok {
		return span, true
	}
	return matchInitials(syllables, pattern)
}

// matchPrefix finds the first syllable starting with the whole pattern.
func matchPrefix(syllables []string, pattern string) (Span, bool) {
	for i, s := range syllables {
		if strings.HasPrefix(s, pattern) {
			return Span{From: i, To: i}, true
		}
	}
	return Span{}, false
}

// matchRun finds the first syllable boundary where the pattern reads
// contiguously through the concatenated syllables, covering at least that
// whole syllable.
func matchRun(syllables []string, pattern string) (Span, bool) {
	n := len(syllables)
	offsets := make([]int, n)
	var flat strings.Builder
	for i, s := range syllables {
		offsets[i] = flat.Len()
		flat.WriteString(s)
	}
	joined := flat.String()

	for i, s := range syllables {
		if len(pattern) < len(s) || !strings.HasPrefix(joined[offsets[i]:], pattern) {
			continue
		}
		end := offsets[i] + len(pattern)
		to := i
		for j := i; j < n && offsets[j] < end; j++ {
			to = j
		}
		return Span{From: i, To: to}, true
	}
	return Span{}, false
}

// matchInitials finds the first window of syllables whose first runes
// spell the pattern. Empty syllables have no initial and never match.
func matchInitials(syllables []string, pattern string) (Span, bool) {
	want := []rune(pattern)
	n := len(want)
	if n > len(syllables) {
		return Span{}, false
	}

	initials := make([]rune, len(syllables))
	for i, s := range syllables {
		if s == "" {
			initials[i] = utf8.RuneError
			continue
		}
		r, _ := utf8.DecodeRuneInString(s)
		initials[i] = r
	}

	for start := 0; start+n <= len(initials); start++ {
		ok := true
		for k := 0; k < n; k++ {
			if initials[start+k] != want[k] || syllables[start+k] == "" {
				ok = false
				break
			}
		}
		if ok {
			return Span{From: start, To: start + n - 1}, true
		}
	}
	return Span{}, false
}
