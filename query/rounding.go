package query

import (
	"math"

	"github.com/rlch/formulang/formulangcfg"
	"github.com/rlch/formulang/solve"
)

// roundSolution rounds sol's derived fields in place to r's precision. A
// zero RoundingConfig field leaves its class of value unrounded, so a field
// the config leaves unset keeps the value exactly as the solver computed it.
func roundSolution(sol *solve.Solution, r formulangcfg.RoundingConfig) {
	if sol == nil {
		return
	}

	sol.TotalCost = roundTo(sol.TotalCost, r.Cost)

	for i := range sol.Ingredients {
		line := &sol.Ingredients[i]
		line.Amount = roundTo(line.Amount, r.Amount)
		line.Percentage = roundTo(line.Percentage, r.Percent)
		line.UnitCost = roundTo(line.UnitCost, r.Cost)
		line.Cost = roundTo(line.Cost, r.Cost)
		line.CostPercentage = roundTo(line.CostPercentage, r.Percent)
	}

	for i := range sol.Nutrients {
		sol.Nutrients[i].Value = roundTo(sol.Nutrients[i].Value, r.Percent)
	}

	if sol.Analysis == nil {
		return
	}

	for k, v := range sol.Analysis.ShadowPrices {
		sol.Analysis.ShadowPrices[k] = roundTo(v, r.Cost)
	}

	for k, v := range sol.Analysis.ReducedCosts {
		sol.Analysis.ReducedCosts[k] = roundTo(v, r.Cost)
	}
}

// roundTo rounds v to places decimal digits. places <= 0 is "no rounding" -
// RoundingConfig's zero value, same as the config package's other
// defaulting fields.
func roundTo(v float64, places int) float64 {
	if places <= 0 {
		return v
	}

	scale := math.Pow10(places)

	return math.Round(v*scale) / scale
}
