// Package resolve builds per-module scopes from a resolved import graph and
// checks every reference a formula makes against them, producing the
// diagnostics a wrong-kind, unknown, or ambiguous name implies.
package resolve

import (
	"github.com/rlch/formulang"
	"github.com/rlch/formulang/module"
)

// SymbolKind discriminates the four declaration kinds a name can resolve
// to.
type SymbolKind int

// Symbol kinds.
const (
	SymbolNutrient SymbolKind = iota
	SymbolIngredient
	SymbolGroup
	SymbolFormula
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolNutrient:
		return "nutrient"
	case SymbolIngredient:
		return "ingredient"
	case SymbolGroup:
		return "group"
	case SymbolFormula:
		return "formula"
	default:
		return "unknown"
	}
}

// Symbol is one resolved name: its kind, the declaration it points at, and
// which module declared it (for diagnostics and hover).
type Symbol struct {
	Name   string
	Kind   SymbolKind
	Module *module.Module
	Node   formulang.Node
}

// Scope is the fully-built name environment for one module: its own
// top-level declarations plus whatever its imports bound into it.
type Scope struct {
	Module *module.Module

	// names is the flat local scope: bare names (own declarations,
	// direct-list imports, and wildcard re-exports) map straight to a
	// Symbol, or to nil if the name is ambiguous (bound by more than one
	// wildcard import).
	names map[string]*Symbol

	// namespaces holds namespaced imports: alias -> that module's own
	// declarations (by bare name). A reference "alias.name" looks here
	// first.
	namespaces map[string]map[string]*Symbol
}

func newScope(mod *module.Module) *Scope {
	return &Scope{Module: mod, names: make(map[string]*Symbol), namespaces: make(map[string]map[string]*Symbol)}
}

// Lookup resolves a bare name in local scope. ok is false if the name is
// undeclared; ambiguous is true if two or more wildcard imports bound it
// without agreement.
func (s *Scope) Lookup(name string) (sym *Symbol, ok, ambiguous bool) {
	sym, ok = s.names[name]
	if ok && sym == nil {
		return nil, true, true
	}

	return sym, ok, false
}

// LookupQualified resolves "namespace.name" against a namespaced import.
func (s *Scope) LookupQualified(namespace, name string) (*Symbol, bool) {
	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, false
	}

	sym, ok := ns[name]

	return sym, ok
}

// Names returns the scope's flat local name table (own declarations plus
// direct-list/wildcard imports). Callers must not mutate the result; it's
// used read-only by completion and other query-side lookups.
func (s *Scope) Names() map[string]*Symbol { return s.names }
