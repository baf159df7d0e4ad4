package resolve

import (
	"github.com/rlch/formulang"
	"github.com/rlch/formulang/module"
)

// BuildScope assembles the name environment for mod: its own declarations,
// plus every name its imports (namespaced, direct-list, or wildcard) bring
// into view, per ctx. Redeclaration within mod's own top-level namespace is
// reported as a diagnostic rather than silently shadowed.
func BuildScope(mod *module.Module, ctx *module.ResolvedContext) (*Scope, []formulang.Diagnostic) {
	scope := newScope(mod)

	var diags []formulang.Diagnostic

	own, ownDiags := ownSymbols(mod)
	diags = append(diags, ownDiags...)

	for name, sym := range own {
		scope.names[name] = sym
	}

	for alias, imported := range ctx.Imports {
		scope.namespaces[alias] = moduleExports(imported)
	}

	for _, binding := range ctx.DirectImports[mod.Path] {
		exports := moduleExports(binding.From)

		sym, ok := exports[binding.Name]
		if !ok {
			continue // a name the imported module doesn't declare is skipped without a diagnostic
		}

		scope.names[binding.Name] = sym
	}

	fromWildcard := make(map[string]bool)

	for _, imported := range ctx.WildcardImports[mod.Path] {
		for name, sym := range moduleExports(imported) {
			existing, seen := scope.names[name]
			if seen && fromWildcard[name] && existing != nil && existing.Module != sym.Module {
				scope.names[name] = nil // ambiguous: bound by two distinct wildcard-imported modules

				continue
			}

			if !seen {
				scope.names[name] = sym
				fromWildcard[name] = true
			}
		}
	}

	return scope, diags
}

// ownSymbols builds the Symbol set for a module's own top-level
// declarations, reporting a redeclaration diagnostic for any name reused
// across nutrient/ingredient/group/formula decls - they share one
// namespace.
func ownSymbols(mod *module.Module) (map[string]*Symbol, []formulang.Diagnostic) {
	out := make(map[string]*Symbol)

	var diags []formulang.Diagnostic

	add := func(name string, kind SymbolKind, node formulang.Node) {
		if existing, ok := out[name]; ok {
			diags = append(diags, formulang.Diagnostic{
				Span:     node.Span(),
				Severity: formulang.SeverityError,
				Message:  name + " is already declared as a " + existing.Kind.String(),
				Code:     formulang.CodeNameRedeclared,
			})

			return
		}

		out[name] = &Symbol{Name: name, Kind: kind, Module: mod, Node: node}
	}

	for _, d := range mod.AST.Decls {
		switch {
		case d.Nutrient != nil:
			add(d.Nutrient.Name, SymbolNutrient, d.Nutrient)
		case d.Ingredient != nil:
			add(d.Ingredient.Name, SymbolIngredient, d.Ingredient)
		case d.Group != nil:
			add(d.Group.Name, SymbolGroup, d.Group)
		case d.Formula != nil:
			add(d.Formula.Name, SymbolFormula, d.Formula)
		}
	}

	return out, diags
}

// moduleExports returns a module's own top-level declarations by name,
// ignoring redeclaration (already reported when that module's own scope
// was built).
func moduleExports(mod *module.Module) map[string]*Symbol {
	out := make(map[string]*Symbol)

	for name, n := range mod.Nutrients() {
		out[name] = &Symbol{Name: name, Kind: SymbolNutrient, Module: mod, Node: n}
	}

	for name, n := range mod.Ingredients() {
		out[name] = &Symbol{Name: name, Kind: SymbolIngredient, Module: mod, Node: n}
	}

	for name, n := range mod.Groups() {
		out[name] = &Symbol{Name: name, Kind: SymbolGroup, Module: mod, Node: n}
	}

	for name, n := range mod.Formulas() {
		out[name] = &Symbol{Name: name, Kind: SymbolFormula, Module: mod, Node: n}
	}

	return out
}
