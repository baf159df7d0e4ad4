// Package query implements the diagnostics/query service: the pure,
// synchronous public API a host embeds - parse, validate, solve, hover,
// and list formulas - without any transport of its own.
package query

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/rlch/formulang"
	"github.com/rlch/formulang/compose"
	"github.com/rlch/formulang/formulangcfg"
	"github.com/rlch/formulang/lp"
	"github.com/rlch/formulang/module"
	"github.com/rlch/formulang/resolve"
	"github.com/rlch/formulang/solve"
)

// Service is the query service's entry point, created with NewService. The
// zero value has no module loader or logger, and Validate, Solve, Formulas
// and SetLogger panic on it. SetLogger attaches debug-level tracing via a
// *zap.Logger threaded through the service.
type Service struct {
	logger      *zap.Logger
	loader      *module.Loader
	backendName string
}

// NewService creates a service backed by a recovering module loader - one
// syntax error anywhere in the module graph doesn't abort Validate/Solve,
// per the query surface's best-effort-on-partially-broken-input contract -
// and the named solver backend (use "gonum" unless a custom backend was
// registered).
func NewService(backendName string) *Service {
	return &Service{logger: zap.NewNop(), loader: module.NewRecoveringLoader(), backendName: backendName}
}

// SetLogger attaches a logger, threading it through the module loader as
// well. A nil logger is replaced with zap.NewNop().
func (s *Service) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s.logger = logger
	s.loader.SetLogger(logger)
}

// Validate parses path and resolves its imports, returning every
// diagnostic the pipeline through composition expansion produces, without
// building or solving any LP.
func (s *Service) Validate(path string) ([]formulang.Diagnostic, error) {
	s.logger.Debug("Validate", zap.String("path", path))

	mod, ctx, diags, err := s.load(path)
	if err != nil {
		return diags, err
	}

	result, resolveDiags := resolve.Module(mod, ctx)
	diags = append(diags, resolveDiags...)

	scope := result.Scope
	for name := range mod.Formulas() {
		if mod.Formulas()[name].IsTemplate {
			continue
		}

		_, nDiags := compose.Expand(result, scope, name, formulang.BlockNutrients)
		_, iDiags := compose.Expand(result, scope, name, formulang.BlockIngredients)
		diags = append(diags, nDiags...)
		diags = append(diags, iDiags...)
	}

	sort.Sort(formulang.ByStartOffset(diags))

	return diags, nil
}

// Solve parses path, resolves and composes formulaName's constraints,
// lowers them to an LP, and solves it.
func (s *Service) Solve(path, formulaName string) (*solve.Solution, []formulang.Diagnostic, error) {
	s.logger.Debug("Solve", zap.String("path", path), zap.String("formula", formulaName))

	mod, ctx, diags, err := s.load(path)
	if err != nil {
		return nil, diags, err
	}

	result, resolveDiags := resolve.Module(mod, ctx)
	diags = append(diags, resolveDiags...)

	formula, ok := mod.Formulas()[formulaName]
	if !ok {
		return nil, diags, fmt.Errorf("%w: %s", module.ErrModuleNotFound, formulaName)
	}

	if formula.IsTemplate {
		return nil, diags, fmt.Errorf("%s is a template formula and cannot be solved", formulaName)
	}

	nutrients, nDiags := compose.Expand(result, result.Scope, formulaName, formulang.BlockNutrients)
	ingredients, iDiags := compose.Expand(result, result.Scope, formulaName, formulang.BlockIngredients)
	diags = append(diags, nDiags...)
	diags = append(diags, iDiags...)

	problem, buildDiags := lp.Build(formula, nutrients, ingredients, ingredientDecls(result, ingredients))
	diags = append(diags, buildDiags...)

	if problem == nil {
		return nil, diags, nil
	}

	solver, err := solve.NewSolver(s.backendName)
	if err != nil {
		return nil, diags, err
	}

	solver.SetLogger(s.logger)

	cfg, cfgErr := formulangcfg.LoadConfig(filepath.Dir(path))
	if cfgErr == nil {
		solver.Configure(cfg.Solver)
	}

	sol, err := solver.Solve(problem)
	if err != nil {
		return sol, diags, err
	}

	if cfgErr == nil {
		roundSolution(sol, cfg.RoundingFor(path))
	}

	return sol, diags, err
}

// Hover implements the query surface's get_hover: it parses source with
// recovery and reports the hover contents at the given byte offset, or nil
// if that position falls on nothing hoverable. A syntax error elsewhere in
// source doesn't prevent hovering over a part that parsed cleanly.
func (s *Service) Hover(source []byte, offset int) *Hover {
	mod, _ := formulang.ParseWithRecovery(source, true)
	if mod == nil {
		return nil
	}

	return GetHover(mod, OffsetToPosition(source, offset))
}

// Completions implements the query surface's get_completions: it parses
// source with recovery, resolves its own declarations into a scope (no
// imports - a raw buffer has no path to resolve them against), and reports
// the completion candidates at the given byte offset.
func (s *Service) Completions(source []byte, offset int) []CompletionItem {
	mod, _ := formulang.ParseWithRecovery(source, true)
	if mod == nil {
		return nil
	}

	buf := module.NewModule("<buffer>", mod)

	result, _ := resolve.Module(buf, module.NewResolvedContext(buf))

	return GetCompletions(mod, result.Scope, source, OffsetToPosition(source, offset))
}

// Formulas returns the names of every non-template formula declared in
// path's module (not its imports).
func (s *Service) Formulas(path string) ([]string, error) {
	mod, err := s.loader.Load(path)
	if err != nil {
		return nil, err
	}

	var names []string

	for name, f := range mod.Formulas() {
		if !f.IsTemplate {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names, nil
}

func (s *Service) load(path string) (*module.Module, *module.ResolvedContext, []formulang.Diagnostic, error) {
	resolver := module.NewResolver(s.loader)

	ctx, err := resolver.Resolve(path)
	if err != nil {
		return nil, nil, classifyLoadError(err), err
	}

	return ctx.Root, ctx, collectParseDiagnostics(ctx), nil
}

// classifyLoadError turns a Resolver.Resolve failure into the right
// per-stage diagnostic, switching on the actual wrapped error rather than
// assuming every *module.LoadError is an import-not-found (a LoadError's
// Cause is also set for a lex/parse failure on the loaded file itself).
func classifyLoadError(err error) []formulang.Diagnostic {
	var loadErr *module.LoadError
	if errors.As(err, &loadErr) {
		var parseFail *module.ParseFailureError
		if errors.As(loadErr.Cause, &parseFail) {
			return formulang.ParseDiagnostics(parseFail.Err)
		}

		return []formulang.Diagnostic{{Severity: formulang.SeverityError, Message: err.Error(), Code: formulang.CodeImportNotFound}}
	}

	var cycleErr *module.CycleError
	if errors.As(err, &cycleErr) {
		return []formulang.Diagnostic{{Severity: formulang.SeverityError, Message: err.Error(), Code: formulang.CodeImportCycle}}
	}

	var aliasErr *module.AliasError
	if errors.As(err, &aliasErr) {
		return []formulang.Diagnostic{{Severity: formulang.SeverityError, Message: err.Error(), Code: formulang.CodeNameRedeclared}}
	}

	return []formulang.Diagnostic{{Severity: formulang.SeverityError, Message: err.Error(), Code: formulang.CodeImportNotFound}}
}

// collectParseDiagnostics gathers every ParseDiagnostics recorded by a
// recovering loader across the whole module graph, so one malformed import
// still surfaces its own errors instead of silently going unreported.
func collectParseDiagnostics(ctx *module.ResolvedContext) []formulang.Diagnostic {
	var diags []formulang.Diagnostic

	for _, mod := range ctx.AllModules {
		diags = append(diags, mod.ParseDiagnostics...)
	}

	return diags
}

// ingredientDecls collects the ingredient declarations referenced by a
// composed ingredients block, resolved against scope so cross-module
// ingredient references work.
func ingredientDecls(result *resolve.Result, block *compose.Block) map[string]*formulang.IngredientDecl {
	out := make(map[string]*formulang.IngredientDecl)

	for _, c := range block.Constraints {
		sym, ok, ambiguous := result.Scope.Lookup(c.Name)
		if !ok || ambiguous {
			continue
		}

		if decl, ok := sym.Node.(*formulang.IngredientDecl); ok {
			out[c.Name] = decl
		}
	}

	return out
}
