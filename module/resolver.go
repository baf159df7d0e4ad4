package module

import "github.com/rlch/formulang"

// Resolver walks a module's import statements and builds the transitive
// module graph, detecting import cycles and alias collisions.
type Resolver struct {
	loader *Loader
}

// NewResolver creates a resolver backed by loader.
func NewResolver(loader *Loader) *Resolver {
	return &Resolver{loader: loader}
}

// Resolve loads rootPath and every module it transitively imports.
func (r *Resolver) Resolve(rootPath string) (*ResolvedContext, error) {
	root, err := r.loader.Load(rootPath)
	if err != nil {
		return nil, err
	}

	return r.ResolveFromModule(root)
}

// ResolveFromModule builds a ResolvedContext for an already-loaded root
// module. Used directly by tests and by the query package, which parses
// in-memory source rather than loading it from disk.
func (r *Resolver) ResolveFromModule(root *Module) (*ResolvedContext, error) {
	ctx := NewResolvedContext(root)

	// visiting = currently on the DFS stack (gray); visited = fully
	// processed (black). A module reachable while still gray is a cycle.
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	if err := r.resolveImports(root, ctx, visiting, visited, []string{root.Path}); err != nil {
		return nil, err
	}

	return ctx, nil
}

func (r *Resolver) resolveImports( //nolint:funcorder
	mod *Module,
	ctx *ResolvedContext,
	visiting, visited map[string]bool,
	path []string,
) error {
	visiting[mod.Path] = true

	for _, imp := range mod.AST.Imports {
		imported, err := r.loader.LoadFrom(imp.Path, mod)
		if err != nil {
			return err
		}

		if visiting[imported.Path] {
			cyclePath := append(path, imported.Path) //nolint:gocritic // intentional append to new slice

			return &CycleError{Path: cyclePath}
		}

		if err := bindImport(mod, imp, imported, ctx); err != nil {
			return err
		}

		ctx.AllModules[imported.Path] = imported

		if !visited[imported.Path] {
			newPath := append(path, imported.Path) //nolint:gocritic // intentional append to new slice

			if err := r.resolveImports(imported, ctx, visiting, visited, newPath); err != nil {
				return err
			}
		}
	}

	visiting[mod.Path] = false
	visited[mod.Path] = true

	return nil
}

// bindImport applies one import's binding (namespaced, aliased, direct-list,
// or wildcard) to ctx, on behalf of the importing module mod.
func bindImport(mod *Module, imp *formulang.Import, imported *Module, ctx *ResolvedContext) error {
	binding := imp.Binding

	switch {
	case binding == nil || binding.Alias != nil:
		alias := imported.BaseName()
		if binding != nil && binding.Alias != nil {
			alias = *binding.Alias
		}

		if existing, ok := ctx.Imports[alias]; ok && existing.Path != imported.Path {
			return &AliasError{Alias: alias, First: existing.Path, Second: imported.Path}
		}

		ctx.Imports[alias] = imported

	case binding.Wildcard:
		ctx.WildcardImports[mod.Path] = append(ctx.WildcardImports[mod.Path], imported)

	default: // direct-list: { a, b }
		for _, name := range binding.Named {
			ctx.DirectImports[mod.Path] = append(ctx.DirectImports[mod.Path], DirectBinding{Name: name, From: imported})
		}
	}

	return nil
}
