package solve

import (
	"math"

	"go.uber.org/zap"

	"github.com/rlch/formulang/formulangcfg"
	"github.com/rlch/formulang/lp"
)

// Violation reports one constraint the best-effort relaxation had to slack
// off to reach a feasible blend.
type Violation struct {
	Label    string
	Required float64
	Actual   float64
	Gap      float64
}

// IngredientLine is one derived report row per ingredient.
type IngredientLine struct {
	Name           string
	Amount         float64
	Percentage     float64
	UnitCost       float64
	Cost           float64
	CostPercentage float64
}

// NutrientLine is one derived report row per nutrient realized by the
// blend.
type NutrientLine struct {
	Name  string
	Value float64 // realized concentration, percent of batch
}

// Analysis carries the LP's sensitivity report. Fields are nil-able: a
// backend that can't produce a given figure (gonum's public Simplex API
// exposes only the primal optimum, not the final tableau) leaves it unset
// rather than fabricating a number.
type Analysis struct {
	BindingConstraints []string
	ShadowPrices       map[string]float64
	ReducedCosts       map[string]float64
	ObjectiveSensitivity map[string][2]float64 // var -> [low, high] cost range holding the basis optimal
	RHSSensitivity       map[string][2]float64 // row label -> [low, high] RHS range holding the basis optimal
}

// Solution is the fully-derived result of solving one formula.
type Solution struct {
	Status      Status
	TotalCost   float64
	Ingredients []IngredientLine
	Nutrients   []NutrientLine
	Analysis    *Analysis
	Violations  []Violation
	Message     string // set when Status is StatusError
}

// DefaultPenalty is the per-unit-slack objective cost used during
// infeasible-relaxation retry unless a .formulang.yaml overrides it via
// Configure.
const DefaultPenalty = 1_000_000.0

// DefaultTolerance is the gap below which a row is considered binding or a
// slack considered zero, unless a .formulang.yaml overrides it via
// Configure.
const DefaultTolerance = 1e-6

// Solver drives a Backend through the optimal-then-relax-on-infeasible
// protocol and derives the report fields every Solution carries. Penalty
// and Tolerance start at their Default* values and can be tuned per
// .formulang.yaml via Configure.
type Solver struct {
	Backend   Backend
	Penalty   float64
	Tolerance float64
	logger    *zap.Logger
}

// NewSolver creates a solver using the named backend.
func NewSolver(backendName string) (*Solver, error) {
	b, err := NewBackend(backendName)
	if err != nil {
		return nil, err
	}

	return &Solver{Backend: b, Penalty: DefaultPenalty, Tolerance: DefaultTolerance, logger: zap.NewNop()}, nil
}

// Configure applies a .formulang.yaml solver section, leaving a Default*
// value in place for any field the config left at its zero value.
func (s *Solver) Configure(cfg formulangcfg.SolverConfig) {
	if cfg.Penalty != 0 {
		s.Penalty = cfg.Penalty
	}

	if cfg.Tolerance != 0 {
		s.Tolerance = cfg.Tolerance
	}
}

// SetLogger attaches debug-level tracing of solver retries. A nil logger is
// replaced with zap.NewNop().
func (s *Solver) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s.logger = logger
}

// Solve runs p through the solver's backend, retrying with relaxed minimum
// constraints if the first attempt is infeasible.
func (s *Solver) Solve(p *lp.Problem) (*Solution, error) {
	s.logger.Debug("solving", zap.String("formula", p.FormulaName), zap.String("backend", s.Backend.Name()))

	raw, err := s.Backend.Solve(p)
	if err != nil {
		return &Solution{Status: StatusError, Message: err.Error()}, err
	}

	switch raw.Status {
	case StatusOptimal:
		return s.report(p, raw, nil), nil
	case StatusInfeasible:
		s.logger.Debug("infeasible, retrying with relaxed minimums", zap.String("formula", p.FormulaName))

		return s.relax(p)
	default:
		return &Solution{Status: StatusError, Message: raw.Message}, nil
	}
}

// relax rebuilds p with every relaxable ("min") row's shortfall absorbed by
// a non-negative slack, penalizes the objective by Penalty per unit of
// slack, and reports each non-zero slack as a Violation.
func (s *Solver) relax(p *lp.Problem) (*Solution, error) {
	relaxed, slackRows := s.relaxProblem(p)

	raw, err := s.Backend.Solve(relaxed)
	if err != nil {
		return &Solution{Status: StatusError, Message: err.Error()}, err
	}

	if raw.Status != StatusOptimal {
		return &Solution{Status: StatusError, Message: "relaxed problem has no feasible blend"}, nil
	}

	var violations []Violation

	for rowIdx, slackVar := range slackRows {
		amount := raw.Values[slackVar]
		if amount <= s.Tolerance {
			continue
		}

		row := p.Rows[rowIdx]
		required := row.RHS
		actual := required - amount

		violations = append(violations, Violation{Label: row.Label, Required: required, Actual: actual, Gap: amount})
	}

	sol := s.report(p, raw, violations)
	sol.Status = StatusInfeasible

	return sol, nil
}

// relaxProblem returns a copy of p where every Relaxable ("min") row gains a
// non-negative slack term ("coeffs·x >= rhs" becomes "coeffs·x + slack >=
// rhs"), and whose objective charges s.Penalty per unit of total slack.
func (s *Solver) relaxProblem(p *lp.Problem) (*lp.Problem, map[int]string) {
	out := cloneProblem(p)
	slackRows := make(map[int]string)

	for i, row := range p.Rows {
		if !row.Relaxable {
			continue
		}

		// coeffs·x >= rhs relaxes to coeffs·x + slack >= rhs, slack ≥ 0: the
		// achieved amount can now fall short of rhs by up to slack.
		slackVar := slackName(i)
		out.Rows[i].Coeffs[slackVar] = 1
		out.VarNames = append(out.VarNames, slackVar)
		out.Cost[slackVar] = s.Penalty
		slackRows[i] = slackVar
	}

	return out, slackRows
}

// cloneProblem makes a deep-enough copy of p for perturbation: every row's
// coefficient map is copied so a perturbed RHS or an added column never
// mutates the original problem backing the caller's own report.
func cloneProblem(p *lp.Problem) *lp.Problem {
	out := &lp.Problem{
		FormulaName: p.FormulaName,
		Batch:       p.Batch,
		VarNames:    append([]string{}, p.VarNames...),
		Cost:        make(map[string]float64, len(p.Cost)),
		Content:     p.Content,
		Rows:        make([]lp.Row, len(p.Rows)),
	}

	for k, v := range p.Cost {
		out.Cost[k] = v
	}

	for i, row := range p.Rows {
		newRow := row
		newRow.Coeffs = make(map[string]float64, len(row.Coeffs)+1)

		for k, v := range row.Coeffs {
			newRow.Coeffs[k] = v
		}

		out.Rows[i] = newRow
	}

	return out
}

func slackName(row int) string { return "__relax_" + itoa(row) }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	var buf [12]byte

	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	return string(buf[i:])
}

// report derives the per-ingredient/per-nutrient fields from a raw optimal
// solve.
func (s *Solver) report(p *lp.Problem, raw *RawResult, violations []Violation) *Solution {
	sol := &Solution{Status: StatusOptimal, TotalCost: raw.ObjectiveValue, Violations: violations}

	for _, name := range p.VarNames {
		amount := raw.Values[name]
		cost := p.Cost[name] * amount

		costPct := 0.0
		if raw.ObjectiveValue != 0 {
			costPct = cost / raw.ObjectiveValue * 100
		}

		sol.Ingredients = append(sol.Ingredients, IngredientLine{
			Name: name, Amount: amount, Percentage: amount / p.Batch * 100,
			UnitCost: p.Cost[name], Cost: cost, CostPercentage: costPct,
		})
	}

	for _, nutrient := range realizedNutrients(p) {
		total := 0.0

		for _, name := range p.VarNames {
			total += p.Content[name][nutrient] * raw.Values[name]
		}

		sol.Nutrients = append(sol.Nutrients, NutrientLine{Name: nutrient, Value: total / p.Batch * 100})
	}

	binding := s.bindingConstraints(p, raw)
	sol.Analysis = &Analysis{
		BindingConstraints: binding,
		ShadowPrices:       s.shadowPrices(p, raw, binding),
		ReducedCosts:       s.reducedCosts(p, raw),
	}

	return sol
}

// perturbDelta is the RHS/variable nudge used to estimate a dual value by
// re-solving rather than reading a tableau gonum's public API never hands
// back.
const perturbDelta = 1e-4

// shadowPrices estimates the dual value of each binding row by raising its
// RHS by perturbDelta (tightening a min row, loosening a max row) and
// re-solving: the resulting change in the
// objective, divided by the nudge, approximates ∂objective/∂rhs at the
// optimum. A row whose perturbed problem can't be resolved to optimality
// (the nudge broke feasibility) is left out rather than reported as zero.
func (s *Solver) shadowPrices(p *lp.Problem, raw *RawResult, binding []string) map[string]float64 {
	if len(binding) == 0 {
		return nil
	}

	isBinding := make(map[string]bool, len(binding))
	for _, label := range binding {
		isBinding[label] = true
	}

	prices := make(map[string]float64, len(binding))

	for i, row := range p.Rows {
		if row.Op == lp.OpEQ || !isBinding[row.Label] {
			continue
		}

		perturbed := cloneProblem(p)
		perturbed.Rows[i].RHS += perturbDelta

		pr, err := s.Backend.Solve(perturbed)
		if err != nil || pr.Status != StatusOptimal {
			continue
		}

		prices[row.Label] = (pr.ObjectiveValue - raw.ObjectiveValue) / perturbDelta
	}

	if len(prices) == 0 {
		return nil
	}

	return prices
}

// reducedCosts estimates, for every variable sitting at zero in the
// optimal solution, the objective's rate of increase per unit forced into
// that variable - the same quantity a basis's reduced-cost row reports,
// recovered here by pinning the variable to perturbDelta with an extra
// equality row and re-solving. A variable already in the basis (nonzero in
// the optimum) has a reduced cost of zero by definition and is skipped.
func (s *Solver) reducedCosts(p *lp.Problem, raw *RawResult) map[string]float64 {
	costs := make(map[string]float64)

	for _, v := range p.VarNames {
		if raw.Values[v] > s.Tolerance {
			continue
		}

		pinned := cloneProblem(p)
		pinned.Rows = append(pinned.Rows, lp.Row{
			Label:  "pin:" + v,
			Coeffs: map[string]float64{v: 1},
			Op:     lp.OpEQ,
			RHS:    perturbDelta,
		})

		pr, err := s.Backend.Solve(pinned)
		if err != nil || pr.Status != StatusOptimal {
			continue
		}

		costs[v] = (pr.ObjectiveValue - raw.ObjectiveValue) / perturbDelta
	}

	if len(costs) == 0 {
		return nil
	}

	return costs
}

func realizedNutrients(p *lp.Problem) []string {
	seen := make(map[string]bool)

	var out []string

	for _, content := range p.Content {
		for nutrient := range content {
			if !seen[nutrient] {
				seen[nutrient] = true
				out = append(out, nutrient)
			}
		}
	}

	return out
}

func (s *Solver) bindingConstraints(p *lp.Problem, raw *RawResult) []string {
	var binding []string

	for _, row := range p.Rows {
		if row.Op == lp.OpEQ {
			continue
		}

		lhs := 0.0
		for v, coeff := range row.Coeffs {
			lhs += coeff * raw.Values[v]
		}

		if math.Abs(lhs-row.RHS) <= s.Tolerance {
			binding = append(binding, row.Label)
		}
	}

	return binding
}
