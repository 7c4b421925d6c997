package host

import (
	"strings"
	"unicode/utf8"

	"github.com/trentlee0/utools-template/internal/feature"
)

// KeywordMatcher decides whether typed input selects a keyword. The
// phonetic searcher's MatchText fits after adapting its return values.
type KeywordMatcher func(keyword, input string) bool

// SubstringKeywords matches keywords containing the input, ignoring case.
func SubstringKeywords(keyword, input string) bool {
	return strings.Contains(strings.ToLower(keyword), strings.ToLower(input))
}

// MatchText reports whether the cmd fires for typed text and returns the
// action to pass to the feature. Image, files and window cmds never fire
// on typed text.
func (c Cmd) MatchText(code, input string, keywords KeywordMatcher) (feature.Action, bool) {
	if input == "" {
		return feature.Action{}, false
	}

	switch c.Type {
	case CmdKeyword:
		if keywords == nil {
			keywords = SubstringKeywords
		}
		if keywords(c.Label, input) {
			return feature.Action{Code: code, Type: feature.ActionText, Payload: c.Label}, true
		}
	case CmdRegex:
		if c.withinLength(input) && c.match != nil && c.match.MatchString(input) {
			return feature.Action{Code: code, Type: feature.ActionRegex, Payload: input}, true
		}
	case CmdOver:
		if c.withinLength(input) && (c.exclude == nil || !c.exclude.MatchString(input)) {
			return feature.Action{Code: code, Type: feature.ActionOver, Payload: input}, true
		}
	}
	return feature.Action{}, false
}

func (c Cmd) withinLength(input string) bool {
	n := utf8.RuneCountInString(input)
	minLen := c.MinLength
	if minLen <= 0 {
		minLen = 1
	}
	if n < minLen {
		return false
	}
	return c.MaxLength <= 0 || n <= c.MaxLength
}

// Candidate is a feature that the typed input can open.
type Candidate struct {
	Feature Feature
	Cmd     Cmd
	Action  feature.Action
}

// Title is the text a launcher shows for the candidate.
func (c Candidate) Title() string {
	if c.Cmd.Label != "" {
		return c.Cmd.Label
	}
	return c.Feature.Explain
}

// cmdRank orders candidates: keywords before regex before over.
func cmdRank(t CmdType) int {
	switch t {
	case CmdKeyword:
		return 0
	case CmdRegex:
		return 1
	default:
		return 2
	}
}

// matchFeature returns the best cmd of f that fires for input.
func matchFeature(f Feature, input string, keywords KeywordMatcher) (Candidate, bool) {
	best := Candidate{}
	found := false
	for _, cmd := range f.Cmds {
		action, ok := cmd.MatchText(f.Code, input, keywords)
		if !ok {
			continue
		}
		if !found || cmdRank(cmd.Type) < cmdRank(best.Cmd.Type) {
			best = Candidate{Feature: f, Cmd: cmd, Action: action}
			found = true
		}
	}
	return best, found
}
