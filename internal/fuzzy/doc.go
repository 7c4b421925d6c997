// Package fuzzy matches typed queries as subsequences of item titles.
//
// Every query rune must appear in the text in order. Matches are scored:
//   - Consecutive character matches (bonus)
//   - Word boundary matches (start of word, camelCase transitions)
//   - Prefix matches (query at start of text)
//   - Shorter text (more specific matches)
//   - Minimal gaps between matched characters
//
// A Searcher adapts the matcher to list filtering, launcher keywords and
// match highlighting. Matches scoring below Options.MinScore are dropped.
package fuzzy
