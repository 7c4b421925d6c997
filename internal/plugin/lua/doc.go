// Package lua hosts feature scripts in a sandboxed gopher-lua state.
//
// # State
//
// State owns one LState and serializes every call into it:
//
//	state := lua.NewState(lua.WithExecutionTimeout(2 * time.Second))
//	defer state.Close()
//
//	state.Preload("feature", loader)
//	if err := state.DoFile("init.lua"); err != nil {
//	    return err
//	}
//
// Callbacks stored by a script are run later through Exec, which holds the
// same lock and applies the same timeout.
//
// # Sandbox
//
// The sandbox removes the functions that load code from disk or strings,
// routes print to the logger and limits require to the standard string,
// table and math modules plus the modules registered with Preload.
//
// # Bridge
//
// Bridge converts between Lua tables and feature list items and actions.
// Values without a Go counterpart, such as functions stored on an item,
// survive a round trip unchanged.
package lua
