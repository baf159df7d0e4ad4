// Package compose expands composition references (base.nutrients,
// base.ingredients.[a,b], group.[a,b], bare group inclusion) into the flat,
// override-resolved constraint lists the LP builder consumes.
package compose

import (
	"strconv"
	"strings"

	"github.com/rlch/formulang"
	"github.com/rlch/formulang/resolve"
)

// Constraint is one resolved (name, bound) pair after composition
// expansion and override resolution - a nutrient's concentration bound, or
// an ingredient/group member's inclusion bound. Name is the override
// identity key: the bare referenced name for a simple reference, or a
// rendered expression for a compound LHS (e.g. a ratio) that has no single
// name of its own.
type Constraint struct {
	Name string
	LHS  *formulang.Expr // nil for constraints synthesized by group/composition expansion
	Min  *formulang.Bound
	Max  *formulang.Bound
	Span formulang.Span
}

// Block is the expanded, override-resolved content of one formula block.
type Block struct {
	Constraints []Constraint // stable emission order: each name collapses to its last-declared position
}

// key identifies one (formula, block) expansion for memoization and cycle
// detection - the same pair can be referenced from more than one place in
// the composition DAG.
type key struct {
	formula string
	block   formulang.BlockKind
}

// expander carries the expansion state across one Expand call: memoized
// results and the DFS stack for cycle detection.
type expander struct {
	scope   *resolve.Scope
	result  *resolve.Result
	memo    map[key]*Block
	visiting map[key]bool
	diags   []formulang.Diagnostic
}

// Expand expands a formula's nutrients or ingredients block into its final
// constraint list, resolving every composition reference it contains
// (transitively) and applying last-definition-wins override semantics
// keyed by name.
func Expand(result *resolve.Result, scope *resolve.Scope, formulaName string, block formulang.BlockKind) (*Block, []formulang.Diagnostic) {
	ex := &expander{scope: scope, result: result, memo: make(map[key]*Block), visiting: make(map[key]bool)}
	b := ex.expand(formulaName, block, []string{formulaName})

	return b, ex.diags
}

func (ex *expander) expand(formulaName string, block formulang.BlockKind, path []string) *Block {
	k := key{formula: formulaName, block: block}

	if cached, ok := ex.memo[k]; ok {
		return cached
	}

	if ex.visiting[k] {
		ex.diags = append(ex.diags, formulang.Diagnostic{
			Severity: formulang.SeverityError,
			Message:  "composition cycle: " + strings.Join(path, " -> "),
			Code:     formulang.CodeCompositionCycle,
		})

		return &Block{}
	}

	ex.visiting[k] = true
	defer delete(ex.visiting, k)

	rf := ex.result.Formulas[formulaName]
	if rf == nil {
		return &Block{}
	}

	items := rf.Nutrients
	if block == formulang.BlockIngredients {
		items = rf.Ingredients
	}

	order := make([]string, 0, len(items))
	byName := make(map[string]Constraint)

	put := func(c Constraint) {
		if _, seen := byName[c.Name]; seen {
			order = removeName(order, c.Name)
		}

		order = append(order, c.Name) // last-definition-wins: re-declaring moves it to the end
		byName[c.Name] = c            // last-definition-wins, replace-as-a-whole
	}

	for _, item := range items {
		switch {
		case item.Composition != nil:
			for _, c := range ex.expandRef(item.Composition, block, path) {
				put(c)
			}
		case item.Constraint != nil:
			put(constraintFromAST(item.Constraint))
		}
	}

	out := &Block{Constraints: make([]Constraint, 0, len(order))}
	for _, name := range order {
		out.Constraints = append(out.Constraints, byName[name])
	}

	ex.memo[k] = out

	return out
}

// removeName deletes name from order, preserving the relative order of
// everything else.
func removeName(order []string, name string) []string {
	for i, n := range order {
		if n == name {
			return append(order[:i:i], order[i+1:]...)
		}
	}

	return order
}

func constraintFromAST(c *formulang.Constraint) Constraint {
	name := exprIdentity(c.LHS)

	return Constraint{Name: name, LHS: c.LHS, Min: c.Min, Max: c.Max, Span: c.Span}
}

// exprIdentity returns the override-identity key for a constraint's
// left-hand side: the bare name for a simple reference, or a rendered form
// of the expression for anything compound (a ratio, a sum) - two syntactically
// identical expressions produce the same key, so a later re-declaration still
// overrides-as-a-whole rather than appending a second constraint.
func exprIdentity(e *formulang.Expr) string {
	if ref := e.IsSimpleRef(); ref != nil {
		return ref.Head
	}

	return renderExpr(e)
}

func renderExpr(e *formulang.Expr) string {
	s := renderTerm(e.First)

	for _, add := range e.Rest {
		s += " " + add.Op + " " + renderTerm(add.Term)
	}

	return s
}

func renderTerm(t *formulang.Term) string {
	s := renderFactor(t.First)

	for _, mul := range t.Rest {
		s += " " + mul.Op + " " + renderFactor(mul.Factor)
	}

	return s
}

func renderFactor(f *formulang.Factor) string {
	switch {
	case f.Number != nil:
		return formatFloat(*f.Number)
	case f.Percent != nil:
		return formatFloat(*f.Percent) + "%"
	case f.Ref != nil:
		return renderRef(f.Ref)
	case f.Paren != nil:
		return "(" + renderExpr(f.Paren) + ")"
	default:
		return ""
	}
}

func renderRef(r *formulang.RefExpr) string {
	s := r.Head

	for _, t := range r.Tail {
		switch {
		case t.Min:
			s += ".min"
		case t.Max:
			s += ".max"
		case t.Nutrients:
			s += ".nutrients"
		case t.Ingredients:
			s += ".ingredients"
		case t.Ident != nil:
			s += "." + *t.Ident
		case t.List != nil:
			s += ".[" + strings.Join(t.List, ",") + "]"
		}
	}

	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (ex *expander) expandRef(ref *formulang.CompositionRef, block formulang.BlockKind, path []string) []Constraint {
	switch ref.Kind {
	case formulang.CompGroupAll:
		return ex.expandGroup(ref.Path, nil, ref.Span)
	case formulang.CompGroupSelect:
		return ex.expandGroup(ref.Path, ref.Names, ref.Span)
	case formulang.CompAllOf:
		sub := ex.expand(ref.Path, block, append(path, ref.Path))

		return sub.Constraints
	case formulang.CompSubset:
		sub := ex.expand(ref.Path, block, append(path, ref.Path))

		return filterNames(sub.Constraints, ref.Names)
	case formulang.CompSingleBound:
		sub := ex.expand(ref.Path, block, append(path, ref.Path))

		return singleBound(sub.Constraints, ref.Names[0], ref.Which, ref.Span)
	default:
		return nil
	}
}

func (ex *expander) expandGroup(groupName string, names []string, span formulang.Span) []Constraint {
	sym, ok, ambiguous := ex.scope.Lookup(groupName)
	if !ok || ambiguous {
		return nil
	}

	group, ok := sym.Node.(*formulang.GroupDecl)
	if !ok {
		return nil
	}

	members := group.Members
	if names != nil {
		members = names
	}

	out := make([]Constraint, 0, len(members))
	for _, m := range members {
		out = append(out, Constraint{Name: m, Span: span})
	}

	return out
}

func filterNames(constraints []Constraint, names []string) []Constraint {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	out := make([]Constraint, 0, len(names))

	for _, c := range constraints {
		if want[c.Name] {
			out = append(out, c)
		}
	}

	return out
}

// singleBound extracts just the min or max bound of one named constraint
// from a base block, re-expressed as a standalone constraint on that same
// name. A base that never bounded the name produces no constraint - the
// missing-bound warning for this case is already reported at resolve time
// (resolve.checkBaseBlock).
func singleBound(constraints []Constraint, name, which string, span formulang.Span) []Constraint {
	for _, c := range constraints {
		if c.Name != name {
			continue
		}

		out := Constraint{Name: name, Span: span}
		if which == formulang.BoundMin {
			out.Min = c.Min
		} else {
			out.Max = c.Max
		}

		return []Constraint{out}
	}

	return nil
}
