package solve

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/rlch/formulang/lp"
)

// GonumBackend solves an lp.Problem with gonum's two-phase simplex
// implementation. Inequality rows are converted to equalities by
// introducing one non-negative slack (≤) or surplus (≥) variable per row,
// since gonum's Simplex only accepts problems already in standard form
// Ax = b, x ≥ 0.
type GonumBackend struct{}

// Name identifies this backend.
func (*GonumBackend) Name() string { return "gonum" }

// Solve implements Backend.
func (*GonumBackend) Solve(p *lp.Problem) (*RawResult, error) {
	vars, slackOf := standardVars(p)

	c := make([]float64, len(vars))
	for i, v := range vars {
		c[i] = p.Cost[v] // slacks default to zero cost
	}

	rows := len(p.Rows)
	a := mat.NewDense(rows, len(vars), nil)
	b := make([]float64, rows)

	index := make(map[string]int, len(vars))
	for i, v := range vars {
		index[v] = i
	}

	for r, row := range p.Rows {
		for v, coeff := range row.Coeffs {
			a.Set(r, index[v], coeff)
		}

		switch row.Op {
		case lp.OpLE:
			a.Set(r, index[slackOf[r]], 1)
		case lp.OpGE:
			a.Set(r, index[slackOf[r]], -1)
		case lp.OpEQ:
			// no slack
		}

		b[r] = row.RHS
	}

	optF, optX, err := gonumlp.Simplex(c, a, b, 0, nil)
	if err != nil {
		if errors.Is(err, gonumlp.ErrInfeasible) {
			return &RawResult{Status: StatusInfeasible, Message: err.Error()}, nil
		}

		return &RawResult{Status: StatusError, Message: err.Error()}, fmt.Errorf("gonum simplex: %w", err)
	}

	values := make(map[string]float64, len(p.VarNames))
	for _, v := range p.VarNames {
		values[v] = optX[index[v]]
	}

	return &RawResult{Status: StatusOptimal, ObjectiveValue: optF, Values: values}, nil
}

// standardVars returns the full variable list (original ingredient
// variables followed by one slack/surplus per inequality row) and a
// row-index -> slack-variable-name map for the inequality rows.
func standardVars(p *lp.Problem) (vars []string, slackOf map[int]string) {
	vars = make([]string, len(p.VarNames))
	copy(vars, p.VarNames)

	slackOf = make(map[int]string)

	for r, row := range p.Rows {
		if row.Op == lp.OpEQ {
			continue
		}

		name := fmt.Sprintf("__slack_%d", r)
		vars = append(vars, name)
		slackOf[r] = name
	}

	return vars, slackOf
}
