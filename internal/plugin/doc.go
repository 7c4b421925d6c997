// Package plugin loads Lua plugins that declare launcher features.
//
// A plugin is either a single .lua file or a directory:
//
//	~/.config/utools-template/plugins/
//	├── clock.lua          # single-file plugin "clock"
//	└── demo/
//	    ├── plugin.json    # optional manifest
//	    └── init.lua       # entry point
//
// The entry point requires the "feature" module and declares templates:
//
//	local feature = require("feature")
//
//	feature.none {
//	  code = "open-browser",
//	  handler = function(action) feature.log("open", action.payload) end,
//	}
//
//	feature.dynamic {
//	  code = "search",
//	  placeholder = "Search",
//	  enter = function(action, render) render({}) end,
//	  search = function(action, query, render)
//	    render({ { title = query } })
//	  end,
//	  select = function(action, item) end,
//	}
//
// feature.list takes a static items array where every item carries its own
// handler. Each Host owns one Lua state; templates are compiled by the
// feature package and keep calling into that state until the plugin is
// unloaded.
//
// plugin.json carries launcher metadata ("features") in the same shape as
// the launcher's own feature list. Declared templates without metadata get
// a feature derived from their title and description.
//
// The Manager discovers and loads plugins from the configured paths, and a
// Watcher reloads a plugin when its files change.
package plugin
