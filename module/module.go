package module

import (
	"path/filepath"
	"strings"

	"github.com/rlch/formulang"
)

// Module is a loaded Formulang source file paired with its parsed AST.
type Module struct {
	// Path is the absolute filesystem path to the .fm file.
	Path string

	// AST is the parsed module.
	AST *formulang.Module

	// ParseDiagnostics holds the errors a recovering parse hit while
	// producing AST, if the loader that produced this Module allows
	// partial loads. Empty for a clean parse.
	ParseDiagnostics []formulang.Diagnostic
}

// NewModule wraps a parsed AST with its resolved path.
func NewModule(path string, ast *formulang.Module) *Module {
	return &Module{Path: path, AST: ast}
}

// BaseName returns the default import namespace: the filename without its
// .fm extension. For "/path/to/nutrients/common.fm" this is "common".
func (m *Module) BaseName() string {
	base := filepath.Base(m.Path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Nutrients returns the module's top-level nutrient declarations, keyed by
// name.
func (m *Module) Nutrients() map[string]*formulang.NutrientDecl {
	out := make(map[string]*formulang.NutrientDecl)

	for _, d := range m.AST.Decls {
		if d.Nutrient != nil {
			out[d.Nutrient.Name] = d.Nutrient
		}
	}

	return out
}

// Ingredients returns the module's top-level ingredient declarations, keyed
// by name.
func (m *Module) Ingredients() map[string]*formulang.IngredientDecl {
	out := make(map[string]*formulang.IngredientDecl)

	for _, d := range m.AST.Decls {
		if d.Ingredient != nil {
			out[d.Ingredient.Name] = d.Ingredient
		}
	}

	return out
}

// Groups returns the module's top-level group declarations, keyed by name.
func (m *Module) Groups() map[string]*formulang.GroupDecl {
	out := make(map[string]*formulang.GroupDecl)

	for _, d := range m.AST.Decls {
		if d.Group != nil {
			out[d.Group.Name] = d.Group
		}
	}

	return out
}

// Formulas returns the module's top-level formula declarations, keyed by
// name.
func (m *Module) Formulas() map[string]*formulang.FormulaDecl {
	out := make(map[string]*formulang.FormulaDecl)

	for _, d := range m.AST.Decls {
		if d.Formula != nil {
			out[d.Formula.Name] = d.Formula
		}
	}

	return out
}

// ResolvedContext is the result of resolving a root module and all its
// transitive imports: every module that was reachable, plus the bindings
// every import in that graph made. Imports is one flat map for the whole
// graph, not only the root's own namespaced imports.
type ResolvedContext struct {
	// Root is the entry-point module.
	Root *Module

	// Imports maps each bound alias (namespaced or default basename) to the
	// module it resolved to. Direct-list and wildcard imports do not appear
	// here by alias; see DirectImports and WildcardImports.
	Imports map[string]*Module

	// DirectImports records, per importing module path, the set of names a
	// "{ a, b }" import pulled directly into that module's local scope,
	// together with the module they came from.
	DirectImports map[string][]DirectBinding

	// WildcardImports records, per importing module path, the modules a
	// "{ * }" import re-exported wholesale into that module's local scope.
	WildcardImports map[string][]*Module

	// AllModules contains every loaded module, keyed by absolute path.
	AllModules map[string]*Module
}

// DirectBinding is one name pulled into local scope by a "{ name, ... }"
// import list.
type DirectBinding struct {
	Name string
	From *Module
}

// NewResolvedContext creates an empty resolution context rooted at root.
func NewResolvedContext(root *Module) *ResolvedContext {
	return &ResolvedContext{
		Root:            root,
		Imports:         make(map[string]*Module),
		DirectImports:   make(map[string][]DirectBinding),
		WildcardImports: make(map[string][]*Module),
		AllModules:      map[string]*Module{root.Path: root},
	}
}
