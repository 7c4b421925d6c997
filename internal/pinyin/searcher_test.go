package pinyin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trentlee0/utools-template/internal/feature"
)

func TestRomanize(t *testing.T) {
	assert.Equal(t, []string{"ni", "hao", "ma"}, Romanize("你好吗"))
	assert.Equal(t, []string{"da", "kai", "chrome"}, Romanize("打开 Chrome"))
	assert.Equal(t, []string{"main", "go"}, Romanize("main.go"))
	assert.Empty(t, Romanize("  "))
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []Segment{
		{Syllable: "da", From: 0, To: 1},
		{Syllable: "kai", From: 1, To: 2},
		{Syllable: "chrome", From: 3, To: 9},
	}, Segments("打开 Chrome"))
	assert.Equal(t, []Segment{
		{Syllable: "v2", From: 0, To: 2},
		{Syllable: "ban", From: 2, To: 3},
	}, Segments("v2版"))
	assert.Nil(t, Segments(""))
}

func TestSearcherHighlight(t *testing.T) {
	s := NewSearcher(0, Options{})

	tests := []struct {
		text, word string
		from, to   int
		ok         bool
	}{
		{"Open Chrome", "chr", 5, 8, true},
		{"打开 Chrome", "dk", 0, 2, true},
		{"打开 Chrome", "kaichrome", 1, 9, true},
		{"打开 Chrome", "开", 1, 2, true},
		{"打开 Chrome", "zz", 0, 0, false},
		{"", "a", 0, 0, false},
	}
	for _, tt := range tests {
		from, to, ok := s.Highlight(tt.text, tt.word)
		assert.Equal(t, tt.ok, ok, "%s/%s", tt.text, tt.word)
		if tt.ok {
			assert.Equal(t, []int{tt.from, tt.to}, []int{from, to}, "%s/%s", tt.text, tt.word)
		}
	}
}

func TestSearcherMatchesRomanizedTitles(t *testing.T) {
	s := NewSearcher(0, Options{})
	match := s.For(false)

	open := feature.ListItem{Title: "打开浏览器"}
	assert.True(t, match(open, "dakai"))
	assert.True(t, match(open, "dk"))
	assert.True(t, match(open, "llq"))
	assert.True(t, match(open, "打开"), "plain substring still matches")
	assert.False(t, match(open, "xyz"))

	assert.False(t, match(feature.ListItem{Description: "浏览器"}, "llq"))
}

func TestSearcherCaseModes(t *testing.T) {
	item := feature.ListItem{Title: "你好吗"}
	tests := []struct {
		mode  Case
		word  string
		match bool
	}{
		{CaseLower, "nhm", true},
		{CaseLower, "NHM", true},
		{CaseUpper, "nhm", true},
		{CaseUpper, "NHM", true},
		{CaseUpper, "nihao", true},
		{CaseSensitive, "nhm", true},
		{CaseSensitive, "NHM", false},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String()+"/"+tt.word, func(t *testing.T) {
			s := NewSearcher(0, Options{Case: tt.mode})
			assert.Equal(t, tt.match, s.For(false)(item, tt.word))

			_, ok := s.MatchText(item.Title, tt.word)
			assert.Equal(t, tt.match, ok)
		})
	}

	s := NewSearcher(0, Options{Case: CaseUpper})
	assert.Equal(t, []string{"DA", "KAI", "CHROME"}, s.Syllables("打开 Chrome"))
	from, to, ok := s.Highlight("打开 Chrome", "dk")
	require.True(t, ok)
	assert.Equal(t, []int{0, 2}, []int{from, to})
}

func TestSearcherDescription(t *testing.T) {
	s := NewSearcher(16, Options{})
	item := feature.ListItem{Title: "Browser", Description: "打开浏览器"}

	assert.False(t, s.For(false)(item, "dkllq"))
	assert.True(t, s.For(true)(item, "dkllq"))
}

func TestSearcherCachesSyllables(t *testing.T) {
	s := NewSearcher(2, Options{})
	first := s.Syllables("你好")
	require.Equal(t, []string{"ni", "hao"}, first)
	assert.Equal(t, 1, s.cache.Len())

	s.Syllables("你好")
	assert.Equal(t, 1, s.cache.Len())

	s.Syllables("a")
	s.Syllables("b")
	assert.Equal(t, 2, s.cache.Len())
}

func TestSearcherWithCompiler(t *testing.T) {
	s := NewSearcher(0, Options{})
	noop := func(feature.Action) error { return nil }

	exports, err := feature.Compile([]feature.Template{
		feature.FixedListTemplate{
			Code: "apps",
			Items: []feature.FixedItem{
				{ListItem: feature.ListItem{Title: "微信"}, Handler: noop},
				{ListItem: feature.ListItem{Title: "网易云音乐"}, Handler: noop},
				{ListItem: feature.ListItem{Title: "Terminal"}, Handler: noop},
			},
		},
	}, feature.WithSearcher(s.Factory()))
	require.NoError(t, err)

	entry, ok := exports.List("apps")
	require.True(t, ok)

	var got []string
	render := func(items []feature.ListItem) {
		got = got[:0]
		for _, it := range items {
			got = append(got, it.Title)
		}
	}

	require.NoError(t, entry.Search(feature.Action{}, "wx", render))
	assert.Equal(t, []string{"微信"}, got)

	require.NoError(t, entry.Search(feature.Action{}, "yunyin", render))
	assert.Equal(t, []string{"网易云音乐"}, got)

	require.NoError(t, entry.Search(feature.Action{}, "wyy", render))
	assert.Equal(t, []string{"网易云音乐"}, got)

	require.NoError(t, entry.Search(feature.Action{}, "term", render))
	assert.Equal(t, []string{"Terminal"}, got)
}

func TestSearcherMatchKeyword(t *testing.T) {
	s := NewSearcher(0, Options{})

	assert.True(t, s.MatchKeyword("打开浏览器", "dkllq"))
	assert.True(t, s.MatchKeyword("Open Browser", "browser"))
	assert.False(t, s.MatchKeyword("打开浏览器", "xyz"))
}
