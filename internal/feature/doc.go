// Package feature compiles declarative feature templates into the runtime
// callbacks a launcher host invokes.
//
// A feature is a single command exposed to the host, identified by its code.
// It is declared with one of three templates:
//
//   - NoneTemplate: no UI, run a handler when the feature is entered
//   - FixedListTemplate: a list captured once, each item with its own handler
//   - DynamicListTemplate: a list computed by a producer on entry, optionally
//     only once per process
//
// Compile turns templates into Exports, a map from code to Entry. An Entry is
// either a *NoneEntry (Enter) or a *ListEntry (Enter, Search, Select). The
// host inspects Mode and calls the methods; it never looks at templates.
//
// # Lists and search
//
// List entries deliver items through a RenderFunc supplied by the host. Each
// call replaces the displayed list. Dynamic producers may call render later,
// from any goroutine; Enter returns as soon as the producer returns.
//
// Unless a template supplies its own search function, Search filters the last
// rendered list with a predicate: case-insensitive substring on Title, and on
// Description when the template enables it. WithSearcher replaces that
// predicate, for example with the phonetic matcher from package pinyin.
// Search on a dynamic list that never delivered anything does not render.
//
// # Errors
//
// Handler and producer errors are returned unmodified from the entry
// methods. Compile only reports configuration problems: invalid templates,
// and duplicate codes when WithStrict is set. Without it the last template
// with a given code wins.
package feature
