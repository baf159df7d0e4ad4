package resolve

import (
	"strings"

	"github.com/rlch/formulang"
	"github.com/rlch/formulang/module"
)

// ResolvedFormula pairs a formula declaration with its classified,
// reference-checked block items, ready for the composition engine.
type ResolvedFormula struct {
	Decl       *formulang.FormulaDecl
	Nutrients  []formulang.Item
	Ingredients []formulang.Item
}

// Result is the output of resolving one module: its scope and every
// formula's classified, checked content.
type Result struct {
	Scope    *Scope
	Formulas map[string]*ResolvedFormula
}

// Module builds mod's scope and resolves every reference its formulas make,
// against ctx's import graph. Diagnostics accumulate rather than abort: a
// bad reference in one formula doesn't stop the rest from being checked.
func Module(mod *module.Module, ctx *module.ResolvedContext) (*Result, []formulang.Diagnostic) {
	scope, diags := BuildScope(mod, ctx)

	result := &Result{Scope: scope, Formulas: make(map[string]*ResolvedFormula)}

	for _, f := range mod.Formulas() {
		rf := &ResolvedFormula{Decl: f}

		if nb := f.NutrientsBlock(); nb != nil {
			for _, item := range nb.Items {
				classified := resolveBareGroupRef(scope, formulang.ClassifyBlockItem(item))
				diags = append(diags, checkItem(scope, classified, formulang.BlockNutrients)...)
				rf.Nutrients = append(rf.Nutrients, classified)
			}
		}

		if ib := f.IngredientsBlock(); ib != nil {
			for _, item := range ib.Items {
				classified := resolveBareGroupRef(scope, formulang.ClassifyBlockItem(item))
				diags = append(diags, checkItem(scope, classified, formulang.BlockIngredients)...)
				rf.Ingredients = append(rf.Ingredients, classified)
			}
		}

		result.Formulas[f.Name] = rf
	}

	return result, diags
}

func checkItem(scope *Scope, item formulang.Item, block formulang.BlockKind) []formulang.Diagnostic {
	if item.Composition != nil {
		return checkComposition(scope, item.Composition, block)
	}

	return checkConstraint(scope, item.Constraint, block)
}

// resolveBareGroupRef reclassifies a provisional CompGroupAll back into an
// ordinary bound-less Constraint when the name it references turns out not
// to name a group at all - "corn" in "ingredients { corn; ... }" is a bare
// inclusion of an ingredient, not a group, and should become an ordinary
// LP variable with no min/max rather than a composition reference that
// fails SymbolGroup's kind check. An unresolved name is left alone:
// checkComposition's own lookupName failure reports the unknown-name
// diagnostic either way.
func resolveBareGroupRef(scope *Scope, item formulang.Item) formulang.Item {
	comp := item.Composition
	if comp == nil || comp.Kind != formulang.CompGroupAll {
		return item
	}

	sym, ok := lookupName(scope, comp.Path)
	if !ok || sym.Kind == SymbolGroup {
		return item
	}

	return formulang.Item{Constraint: &formulang.Constraint{Span: comp.Span, LHS: comp.LHS}}
}

func checkComposition(scope *Scope, ref *formulang.CompositionRef, block formulang.BlockKind) []formulang.Diagnostic {
	sym, ok := lookupName(scope, ref.Path)
	if !ok {
		return []formulang.Diagnostic{unknownName(ref.Span, ref.Path)}
	}

	switch ref.Kind {
	case formulang.CompGroupAll, formulang.CompGroupSelect:
		if sym.Kind != SymbolGroup {
			return []formulang.Diagnostic{wrongKind(ref.Span, ref.Path, SymbolGroup, sym.Kind)}
		}

		return checkGroupMembers(sym, ref)

	default: // CompAllOf, CompSubset, CompSingleBound: reference another formula's block
		if sym.Kind != SymbolFormula {
			return []formulang.Diagnostic{wrongKind(ref.Span, ref.Path, SymbolFormula, sym.Kind)}
		}

		base, _ := sym.Node.(*formulang.FormulaDecl)
		if ref.BlockKind != block {
			return []formulang.Diagnostic{{
				Span:     ref.Span,
				Severity: formulang.SeverityError,
				Message:  "cannot reference a " + ref.BlockKind.String() + " block from a " + block.String() + " block",
				Code:     formulang.CodeTypeWrongKind,
			}}
		}

		return checkBaseBlock(base, ref)
	}
}

func checkGroupMembers(sym *Symbol, ref *formulang.CompositionRef) []formulang.Diagnostic {
	if ref.Kind != formulang.CompGroupSelect {
		return nil
	}

	group, _ := sym.Node.(*formulang.GroupDecl)

	members := make(map[string]bool, len(group.Members))
	for _, m := range group.Members {
		members[m] = true
	}

	var diags []formulang.Diagnostic

	for _, name := range ref.Names {
		if !members[name] {
			diags = append(diags, formulang.Diagnostic{
				Span:     ref.Span,
				Severity: formulang.SeverityError,
				Message:  name + " is not a member of group " + group.Name,
				Code:     formulang.CodeNameUnknown,
			})
		}
	}

	return diags
}

// checkBaseBlock validates a composition reference's optional Names against
// the base formula's actual nutrient/ingredient content. A SingleBound
// reference to a name the base formula never constrains is a warning, not
// an error (spec: missing base bound is non-fatal - the constraint simply
// carries no inherited bound).
func checkBaseBlock(base *formulang.FormulaDecl, ref *formulang.CompositionRef) []formulang.Diagnostic {
	if base == nil || len(ref.Names) == 0 {
		return nil
	}

	declared := baseNames(base, ref.BlockKind)

	var diags []formulang.Diagnostic

	for _, name := range ref.Names {
		if declared[name] {
			continue
		}

		severity := formulang.SeverityError
		code := formulang.CodeNameUnknown

		if ref.Kind == formulang.CompSingleBound {
			severity = formulang.SeverityWarning
			code = formulang.CodeCompositionMissingBound
		}

		diags = append(diags, formulang.Diagnostic{
			Span:     ref.Span,
			Severity: severity,
			Message:  base.Name + " has no " + ref.BlockKind.String() + " entry named " + name,
			Code:     code,
		})
	}

	return diags
}

func baseNames(base *formulang.FormulaDecl, block formulang.BlockKind) map[string]bool {
	names := make(map[string]bool)

	var items []*formulang.BlockItem
	if block == formulang.BlockNutrients {
		if nb := base.NutrientsBlock(); nb != nil {
			items = nb.Items
		}
	} else if ib := base.IngredientsBlock(); ib != nil {
		items = ib.Items
	}

	for _, item := range items {
		classified := formulang.ClassifyBlockItem(item)
		if classified.Constraint == nil {
			continue
		}

		if ref := classified.Constraint.LHS.IsSimpleRef(); ref != nil && len(ref.Tail) == 0 {
			names[ref.Head] = true
		}
	}

	return names
}

func checkConstraint(scope *Scope, c *formulang.Constraint, block formulang.BlockKind) []formulang.Diagnostic {
	var diags []formulang.Diagnostic

	for _, ref := range refsIn(c.LHS) {
		diags = append(diags, checkReference(scope, ref, block)...)
	}

	if hasPercent(c.LHS) && block == formulang.BlockNutrients {
		diags = append(diags, formulang.Diagnostic{
			Span:     c.Span,
			Severity: formulang.SeverityError,
			Message:  "percent literals are only meaningful inside an ingredients block",
			Code:     formulang.CodeTypePercentOutside,
		})
	}

	for _, b := range []*formulang.Bound{c.Min, c.Max} {
		if b != nil && b.IsPercent() && block == formulang.BlockNutrients {
			diags = append(diags, formulang.Diagnostic{
				Span:     b.Span(),
				Severity: formulang.SeverityError,
				Message:  "percent bounds are only meaningful inside an ingredients block",
				Code:     formulang.CodeTypePercentOutside,
			})
		}
	}

	return diags
}

func checkReference(scope *Scope, ref *formulang.RefExpr, block formulang.BlockKind) []formulang.Diagnostic {
	if len(ref.Tail) > 0 && ref.Tail[0].Ident == nil {
		return nil // a composition-shaped path inside arithmetic; resolver-time shape check only applies to bare refs
	}

	name := ref.Head
	if len(ref.Tail) == 1 && ref.Tail[0].Ident != nil {
		return checkQualified(scope, ref, name, *ref.Tail[0].Ident, block)
	}

	sym, ok, ambiguous := scope.Lookup(name)
	if ambiguous {
		return []formulang.Diagnostic{{Span: refSpan(ref), Severity: formulang.SeverityError, Message: name + " is ambiguous across wildcard imports", Code: formulang.CodeNameAmbiguous}}
	}

	if !ok {
		return []formulang.Diagnostic{unknownName(refSpan(ref), name)}
	}

	return checkRefKind(sym, ref, block)
}

func checkQualified(scope *Scope, ref *formulang.RefExpr, namespace, name string, block formulang.BlockKind) []formulang.Diagnostic {
	sym, ok := scope.LookupQualified(namespace, name)
	if !ok {
		return []formulang.Diagnostic{unknownName(refSpan(ref), namespace+"."+name)}
	}

	return checkRefKind(sym, ref, block)
}

func checkRefKind(sym *Symbol, ref *formulang.RefExpr, block formulang.BlockKind) []formulang.Diagnostic {
	want := SymbolNutrient
	if block == formulang.BlockIngredients {
		want = SymbolIngredient
	}

	if sym.Kind != want && !(block == formulang.BlockIngredients && sym.Kind == SymbolGroup) {
		return []formulang.Diagnostic{wrongKind(refSpan(ref), ref.Head, want, sym.Kind)}
	}

	return nil
}

func lookupName(scope *Scope, path string) (*Symbol, bool) {
	if idx := strings.IndexByte(path, '.'); idx >= 0 {
		sym, ok := scope.LookupQualified(path[:idx], path[idx+1:])

		return sym, ok
	}

	sym, ok, ambiguous := scope.Lookup(path)

	return sym, ok && !ambiguous
}

func refsIn(e *formulang.Expr) []*formulang.RefExpr {
	var out []*formulang.RefExpr

	collectTerm(e.First, &out)

	for _, add := range e.Rest {
		collectTerm(add.Term, &out)
	}

	return out
}

func collectTerm(t *formulang.Term, out *[]*formulang.RefExpr) {
	collectFactor(t.First, out)

	for _, mul := range t.Rest {
		collectFactor(mul.Factor, out)
	}
}

func collectFactor(f *formulang.Factor, out *[]*formulang.RefExpr) {
	switch {
	case f.Ref != nil:
		*out = append(*out, f.Ref)
	case f.Paren != nil:
		*out = append(*out, refsIn(f.Paren)...)
	}
}

func hasPercent(e *formulang.Expr) bool {
	if hasPercentTerm(e.First) {
		return true
	}

	for _, add := range e.Rest {
		if hasPercentTerm(add.Term) {
			return true
		}
	}

	return false
}

func hasPercentTerm(t *formulang.Term) bool {
	if hasPercentFactor(t.First) {
		return true
	}

	for _, mul := range t.Rest {
		if hasPercentFactor(mul.Factor) {
			return true
		}
	}

	return false
}

func hasPercentFactor(f *formulang.Factor) bool {
	if f.Percent != nil {
		return true
	}

	return f.Paren != nil && hasPercent(f.Paren)
}

func refSpan(ref *formulang.RefExpr) formulang.Span { return ref.Span() }

func unknownName(span formulang.Span, name string) formulang.Diagnostic {
	return formulang.Diagnostic{Span: span, Severity: formulang.SeverityError, Message: name + " is not declared", Code: formulang.CodeNameUnknown}
}

func wrongKind(span formulang.Span, name string, want, got SymbolKind) formulang.Diagnostic {
	return formulang.Diagnostic{
		Span:     span,
		Severity: formulang.SeverityError,
		Message:  name + " is a " + got.String() + ", expected a " + want.String(),
		Code:     formulang.CodeTypeWrongKind,
	}
}
