package pinyin

import (
	"strings"
	"unicode"

	gopinyin "github.com/mozillazg/go-pinyin"
)

var romanizeArgs = func() gopinyin.Args {
	a := gopinyin.NewArgs()
	a.Style = gopinyin.Normal
	return a
}()

// Segment is one syllable of a text together with the runes it covers.
// From and To are rune offsets, To exclusive.
type Segment struct {
	Syllable string
	From     int
	To       int
}

// Segments decomposes text into lowercase syllables.
//
// Every Han character becomes its toneless reading (the first reading for
// heteronyms). Every run of other non-space characters becomes one syllable,
// so "打开 Chrome" yields ["da", "kai", "chrome"]. Characters without a
// known reading are kept as their own syllable.
func Segments(text string) []Segment {
	var out []Segment
	var word strings.Builder
	start := 0

	flush := func(end int) {
		if word.Len() > 0 {
			out = append(out, Segment{Syllable: strings.ToLower(word.String()), From: start, To: end})
			word.Reset()
		}
	}

	i := 0
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush(i)
			syl := string(r)
			if readings := gopinyin.LazyPinyin(syl, romanizeArgs); len(readings) > 0 && readings[0] != "" {
				syl = readings[0]
			}
			out = append(out, Segment{Syllable: syl, From: i, To: i + 1})
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			flush(i)
		default:
			if word.Len() == 0 {
				start = i
			}
			word.WriteRune(r)
		}
		i++
	}
	flush(i)
	return out
}

// Romanize returns the syllables of Segments.
func Romanize(text string) []string {
	segs := Segments(text)
	if segs == nil {
		return nil
	}
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Syllable
	}
	return out
}
