// Package pinyin matches user queries against romanized (phonetic) text.
//
// A target is decomposed into syllables, one per logical character or word,
// for example "你好吗" becomes ["ni", "hao", "ma"]. Match then decides
// whether a typed pattern refers to that target and which syllables it
// spans. Three input styles are recognized, tried in this order:
//
//   - the start of a single syllable ("ha" → hao)
//   - several whole syllables typed in a row, ending anywhere inside the
//     last one ("nihaom" → ni hao ma)
//   - the initials of consecutive syllables ("nhm" → ni hao ma)
//
// The first style that finds anything wins, and within a style the lowest
// syllable index wins.
//
// # Usage
//
//	span, ok := pinyin.Match([]string{"ni", "hao", "ma"}, "hao", pinyin.Options{})
//	// span == Span{From: 1, To: 1}, ok == true
//
// Romanize builds syllables from arbitrary text, and NewSearcher plugs the
// matcher into the feature compiler as a list-item predicate.
package pinyin
