package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/trentlee0/utools-template/internal/logging"
)

// builtinModules may always be required.
var builtinModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
}

// Sandbox restricts what feature scripts can reach.
type Sandbox struct {
	L       *lua.LState
	log     *logging.Logger
	allowed map[string]bool
}

// NewSandbox creates a sandbox for L. Script output goes to log.
func NewSandbox(L *lua.LState, log *logging.Logger) *Sandbox {
	return &Sandbox{
		L:       L,
		log:     log,
		allowed: make(map[string]bool),
	}
}

// Install applies the restrictions to the state.
func (s *Sandbox) Install() {
	for _, name := range []string{
		"dofile",
		"loadfile",
		"load",
		"loadstring",
		"module",
	} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installPrint()
	s.installRequire()
}

// Allow lets scripts require a preloaded module.
func (s *Sandbox) Allow(name string) {
	s.allowed[name] = true
}

// Allowed reports whether name may be required.
func (s *Sandbox) Allowed(name string) bool {
	return builtinModules[name] || s.allowed[name]
}

// installPrint sends print output to the logger; a terminal UI owns stdout.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		s.log.Info("%s", strings.Join(parts, "\t"))
		return 0
	}))
}

// installRequire replaces require with a whitelist check in front of the
// original. package.path and package.cpath are cleared so nothing is
// loaded from disk.
func (s *Sandbox) installRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	originalRequire := s.L.GetGlobal("require")
	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !s.Allowed(name) {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(originalRequire)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}
