// Package lp lowers a fully-composed, non-template formula into the
// variables, linear constraints, and objective a solver backend consumes.
package lp

import (
	"github.com/rlch/formulang"
	"github.com/rlch/formulang/compose"
)

// Op is a row's comparison operator.
type Op int

// Row comparison operators.
const (
	OpEQ Op = iota
	OpLE
	OpGE
)

// RowKind tags where a row came from, for violation reporting and the
// infeasible-relaxation retry (only Min-kind nutrient/ingredient rows are
// relaxed).
type RowKind int

// Row kinds.
const (
	RowNutrient RowKind = iota
	RowIngredient
	RowBatch
)

// Row is one linear constraint: Σ coeffs[v]·v (op) rhs.
type Row struct {
	Label     string
	Kind      RowKind
	Coeffs    map[string]float64
	Op        Op
	RHS       float64
	Relaxable bool // true for a "min" row: eligible for slack relaxation when the LP is infeasible
	Span      formulang.Span
}

// Problem is a fully-built linear program, ready for a solver backend.
type Problem struct {
	FormulaName string
	Batch       float64
	VarNames    []string // stable order: first-seen in the ingredients block
	Cost        map[string]float64
	Content     map[string]map[string]float64 // ingredient -> nutrient -> content
	Rows        []Row
}

// Build lowers formula's composed nutrient and ingredient blocks into a
// Problem. ingredientDecls must contain every ingredient named in
// ingredientsBlock; a missing cost is reported as a diagnostic rather than
// aborting the build, so the caller can still surface every issue in one
// pass.
func Build(
	formula *formulang.FormulaDecl,
	nutrientsBlock, ingredientsBlock *compose.Block,
	ingredientDecls map[string]*formulang.IngredientDecl,
) (*Problem, []formulang.Diagnostic) {
	var diags []formulang.Diagnostic

	batch, ok := formula.BatchSize()
	if !ok {
		diags = append(diags, formulang.Diagnostic{
			Span:     formula.Span(),
			Severity: formulang.SeverityError,
			Message:  formula.Name + " has no batch_size",
			Code:     formulang.CodeSemanticMissingBatchSize,
		})

		return nil, diags
	}

	p := &Problem{FormulaName: formula.Name, Batch: batch, Cost: make(map[string]float64), Content: make(map[string]map[string]float64)}

	for _, c := range ingredientsBlock.Constraints {
		if _, seen := p.Cost[c.Name]; seen {
			continue
		}

		p.VarNames = append(p.VarNames, c.Name)

		decl, ok := ingredientDecls[c.Name]
		if !ok {
			diags = append(diags, formulang.Diagnostic{Span: c.Span, Severity: formulang.SeverityError, Message: c.Name + " is not a declared ingredient", Code: formulang.CodeNameUnknown})

			continue
		}

		cost, ok := decl.Cost()
		if !ok {
			diags = append(diags, formulang.Diagnostic{Span: decl.Span(), Severity: formulang.SeverityError, Message: c.Name + " has no cost", Code: formulang.CodeSemanticMissingCost})
		}

		p.Cost[c.Name] = cost

		content := make(map[string]float64)
		for _, nv := range decl.NutrientValues() {
			content[nv.Nutrient] = nv.Value
		}

		p.Content[c.Name] = content
	}

	ingredientVar := func(name string) (Linear, bool) {
		if _, ok := p.Cost[name]; !ok {
			return Linear{}, false
		}

		return Linear{Coeffs: map[string]float64{name: 1}}, true
	}

	nutrientVar := func(name string) (Linear, bool) {
		l := zero()

		for _, v := range p.VarNames {
			if content := p.Content[v][name]; content != 0 {
				l.Coeffs[v] = content
			}
		}

		return l, true
	}

	p.Rows = append(p.Rows, buildIngredientRows(ingredientsBlock, ingredientVar, batch)...)

	nutrientRows, nDiags := buildNutrientRows(nutrientsBlock, nutrientVar, batch)
	p.Rows = append(p.Rows, nutrientRows...)
	diags = append(diags, nDiags...)

	p.Rows = append(p.Rows, batchRow(p.VarNames, batch))

	return p, diags
}

func buildIngredientRows(block *compose.Block, resolve NameResolver, batch float64) []Row {
	var rows []Row

	for _, c := range block.Constraints {
		var lhs Linear

		if c.LHS == nil {
			// synthesized by group/composition expansion: a bare variable reference
			lhs = Linear{Coeffs: map[string]float64{c.Name: 1}}
		} else {
			var err error

			lhs, err = Eval(c.LHS, resolve)
			if err != nil {
				continue // logged upstream by resolve.checkConstraint; LP build skips what it can't linearize
			}
		}

		if c.Min != nil {
			rows = append(rows, Row{
				Label: c.Name + " min", Kind: RowIngredient, Coeffs: lhs.Coeffs,
				Op: OpGE, RHS: scaledBound(c.Min, batch), Relaxable: true, Span: c.Span,
			})
		}

		if c.Max != nil {
			rows = append(rows, Row{
				Label: c.Name + " max", Kind: RowIngredient, Coeffs: lhs.Coeffs,
				Op: OpLE, RHS: scaledBound(c.Max, batch), Span: c.Span,
			})
		}
	}

	return rows
}

func buildNutrientRows(block *compose.Block, resolve NameResolver, batch float64) ([]Row, []formulang.Diagnostic) {
	var (
		rows  []Row
		diags []formulang.Diagnostic
	)

	for _, c := range block.Constraints {
		if c.LHS == nil {
			lhs, _ := resolve(c.Name)
			rows = append(rows, boundedRows(c.Name, lhs.Coeffs, c.Min, c.Max, batch, c.Span)...)

			continue
		}

		if ratioA, ratioD, ok := asRatio(c.LHS); ok {
			a, errA := Eval(ratioA, resolve)
			d, errD := Eval(ratioD, resolve)

			if errA != nil || errD != nil {
				diags = append(diags, formulang.Diagnostic{Span: c.Span, Severity: formulang.SeverityError, Message: "cannot linearize ratio constraint", Code: formulang.CodeTypeWrongKind})

				continue
			}

			rows = append(rows, ratioRows(a, d, c.Min, c.Max, c.Span)...)

			continue
		}

		lhs, err := Eval(c.LHS, resolve)
		if err != nil {
			diags = append(diags, formulang.Diagnostic{Span: c.Span, Severity: formulang.SeverityError, Message: "cannot linearize constraint", Code: formulang.CodeTypeWrongKind})

			continue
		}

		rows = append(rows, boundedRows(c.Name, lhs.Coeffs, c.Min, c.Max, batch, c.Span)...)
	}

	return rows, diags
}

func boundedRows(label string, coeffs map[string]float64, min, max *formulang.Bound, batch float64, span formulang.Span) []Row {
	var rows []Row

	if min != nil {
		rows = append(rows, Row{Label: label + " min", Kind: RowNutrient, Coeffs: coeffs, Op: OpGE, RHS: nutrientRHS(min, batch), Relaxable: true, Span: span})
	}

	if max != nil {
		rows = append(rows, Row{Label: label + " max", Kind: RowNutrient, Coeffs: coeffs, Op: OpLE, RHS: nutrientRHS(max, batch), Span: span})
	}

	return rows
}

// ratioRows linearizes A/D (op) V as A − V·D (op) 0 for each present bound.
func ratioRows(a, d Linear, min, max *formulang.Bound, span formulang.Span) []Row {
	var rows []Row

	lhs := func(v float64) map[string]float64 {
		return sub(a, scale(d, v)).Coeffs
	}

	if min != nil {
		rows = append(rows, Row{Label: "ratio min", Kind: RowNutrient, Coeffs: lhs(min.Value()), Op: OpGE, RHS: 0, Relaxable: true, Span: span})
	}

	if max != nil {
		rows = append(rows, Row{Label: "ratio max", Kind: RowNutrient, Coeffs: lhs(max.Value()), Op: OpLE, RHS: 0, Span: span})
	}

	return rows
}

// asRatio reports whether e is exactly "A / D": a single term, one '/'
// continuation, no other additive structure.
func asRatio(e *formulang.Expr) (a, d *formulang.Expr, ok bool) {
	if len(e.Rest) != 0 || len(e.First.Rest) != 1 || e.First.Rest[0].Op != "/" {
		return nil, nil, false
	}

	num := &formulang.Expr{First: &formulang.Term{First: e.First.First}}
	den := &formulang.Expr{First: &formulang.Term{First: e.First.Rest[0].Factor}}

	return num, den, true
}

func batchRow(vars []string, batch float64) Row {
	coeffs := make(map[string]float64, len(vars))
	for _, v := range vars {
		coeffs[v] = 1
	}

	return Row{Label: "batch", Kind: RowBatch, Coeffs: coeffs, Op: OpEQ, RHS: batch}
}

// scaledBound converts a percent bound to its absolute-of-batch value;
// an absolute bound passes through unchanged. Used for ingredient-block
// bounds, where only an explicit "%" literal means percent-of-batch.
func scaledBound(b *formulang.Bound, batch float64) float64 {
	if b.IsPercent() {
		return b.Value() * batch / 100
	}

	return b.Value()
}

// nutrientRHS converts a nutrient-block bound to its absolute-of-batch
// value. Unlike ingredient bounds, every nutrient value is percent-of-batch
// regardless of whether it was written with a trailing "%".
func nutrientRHS(b *formulang.Bound, batch float64) float64 {
	return b.Value() * batch / 100
}
