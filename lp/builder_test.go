package lp_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rlch/formulang"
	"github.com/rlch/formulang/compose"
	"github.com/rlch/formulang/lp"
	"github.com/rlch/formulang/module"
	"github.com/rlch/formulang/resolve"
)

func buildSource(t *testing.T, src, formulaName string) (*lp.Problem, []formulang.Diagnostic) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "root.fm")

	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, err := module.NewResolver(module.NewLoader()).Resolve(path)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	result, diags := resolve.Module(ctx.Root, ctx)
	if len(diags) != 0 {
		t.Fatalf("resolve.Module() diagnostics = %+v, want none", diags)
	}

	formula := ctx.Root.Formulas()[formulaName]

	nutrients, nDiags := compose.Expand(result, result.Scope, formulaName, formulang.BlockNutrients)
	ingredients, iDiags := compose.Expand(result, result.Scope, formulaName, formulang.BlockIngredients)

	decls := make(map[string]*formulang.IngredientDecl)
	for _, c := range ingredients.Constraints {
		if decl, ok := ctx.Root.Ingredients()[c.Name]; ok {
			decls[c.Name] = decl
		}
	}

	p, buildDiags := lp.Build(formula, nutrients, ingredients, decls)

	diags = append(nDiags, iDiags...)
	diags = append(diags, buildDiags...)

	return p, diags
}

const layerSource = `
	nutrient protein { code CP }
	nutrient energy { code ME }

	ingredient corn { cost 150 protein 8.5 energy 3300 }
	ingredient soy { cost 400 protein 44 energy 2400 }

	formula layer {
		batch_size 1000
		nutrients { protein min 16 max 24, energy min 2900 }
		ingredients { corn min 0 max 1000, soy min 0 max 1000 }
	}
`

func TestBuild_RowsAndBatch(t *testing.T) {
	t.Parallel()

	p, diags := buildSource(t, layerSource, "layer")
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %+v, want none", diags)
	}

	if p.Batch != 1000 {
		t.Errorf("Batch = %v, want 1000", p.Batch)
	}

	if got := len(p.VarNames); got != 2 {
		t.Fatalf("VarNames = %v, want 2 entries", p.VarNames)
	}

	if p.Cost["corn"] != 150 || p.Cost["soy"] != 400 {
		t.Errorf("Cost = %+v, want corn=150 soy=400", p.Cost)
	}

	var batchRows, nutrientRows, ingredientRows int

	for _, row := range p.Rows {
		switch row.Kind {
		case lp.RowBatch:
			batchRows++

			if row.RHS != 1000 || row.Op != lp.OpEQ {
				t.Errorf("batch row = %+v, want RHS=1000 Op=EQ", row)
			}
		case lp.RowNutrient:
			nutrientRows++
		case lp.RowIngredient:
			ingredientRows++
		}
	}

	if batchRows != 1 {
		t.Errorf("batch rows = %d, want 1", batchRows)
	}

	if nutrientRows != 3 { // protein min+max, energy min
		t.Errorf("nutrient rows = %d, want 3", nutrientRows)
	}

	if ingredientRows != 4 { // corn min+max, soy min+max
		t.Errorf("ingredient rows = %d, want 4", ingredientRows)
	}
}

func TestBuild_PercentVsAbsoluteEquivalence(t *testing.T) {
	t.Parallel()

	absolute, _ := buildSource(t, layerSource, "layer")

	percentSource := `
		nutrient protein { code CP }
		nutrient energy { code ME }

		ingredient corn { cost 150 protein 8.5 energy 3300 }
		ingredient soy { cost 400 protein 44 energy 2400 }

		formula layer {
			batch_size 1000
			nutrients { protein min 16 max 24, energy min 2900 }
			ingredients { corn min 0% max 100%, soy min 0% max 100% }
		}
	`

	percent, _ := buildSource(t, percentSource, "layer")

	findRow := func(p *lp.Problem, label string) *lp.Row {
		for i := range p.Rows {
			if p.Rows[i].Label == label {
				return &p.Rows[i]
			}
		}

		return nil
	}

	for _, label := range []string{"corn min", "corn max", "soy min", "soy max"} {
		a := findRow(absolute, label)
		b := findRow(percent, label)

		if a == nil || b == nil {
			t.Fatalf("missing row %q", label)
		}

		if a.RHS != b.RHS {
			t.Errorf("%s: absolute RHS=%v, percent RHS=%v, want equal", label, a.RHS, b.RHS)
		}
	}
}

func TestBuild_RatioConstraintLinearized(t *testing.T) {
	t.Parallel()

	src := `
		nutrient calcium { code Ca }
		nutrient phosphorus { code P }

		ingredient limestone { cost 20 calcium 38 }
		ingredient corn { cost 150 phosphorus 0.3 }

		formula layer {
			batch_size 1000
			nutrients { calcium / phosphorus min 1.5 max 2.5 }
			ingredients { limestone min 0 max 100, corn min 0 max 1000 }
		}
	`

	p, diags := buildSource(t, src, "layer")
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %+v, want none", diags)
	}

	var ratioRows int

	for _, row := range p.Rows {
		if row.Label == "ratio min" || row.Label == "ratio max" {
			ratioRows++

			if row.RHS != 0 {
				t.Errorf("%s RHS = %v, want 0", row.Label, row.RHS)
			}
		}
	}

	if ratioRows != 2 {
		t.Errorf("ratio rows = %d, want 2", ratioRows)
	}
}

func TestBuild_MissingBatchSize(t *testing.T) {
	t.Parallel()

	src := `
		ingredient corn { cost 150 }

		formula layer {
			ingredients { corn min 0 max 1000 }
		}
	`

	_, diags := buildSource(t, src, "layer")

	found := false

	for _, d := range diags {
		if d.Code == formulang.CodeSemanticMissingBatchSize {
			found = true
		}
	}

	if !found {
		t.Errorf("diagnostics = %+v, want CodeSemanticMissingBatchSize", diags)
	}
}

func TestBuild_MissingCost(t *testing.T) {
	t.Parallel()

	src := `
		ingredient corn {
			protein 8.5
		}

		formula layer {
			batch_size 1000
			ingredients { corn min 0 max 1000 }
		}
	`

	_, diags := buildSource(t, src, "layer")

	found := false

	for _, d := range diags {
		if d.Code == formulang.CodeSemanticMissingCost {
			found = true
		}
	}

	if !found {
		t.Errorf("diagnostics = %+v, want CodeSemanticMissingCost", diags)
	}
}
