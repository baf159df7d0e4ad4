package formulang_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/formulang"
)

var ignorePositions = cmpopts.IgnoreTypes(lexer.Position{})

func ptr[T any](v T) *T {
	return &v
}

func TestParse_NutrientAndIngredient(t *testing.T) {
	t.Parallel()

	src := `
		nutrient protein {
			code CP
			unit "percent"
		}

		ingredient corn {
			cost 150
			protein 8.5
		}
	`

	mod, err := formulang.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if len(mod.Decls) != 2 {
		t.Fatalf("got %d decls, want 2", len(mod.Decls))
	}

	nutrient := mod.Decls[0].Nutrient
	if nutrient == nil || nutrient.Name != "protein" {
		t.Fatalf("unexpected nutrient decl: %+v", nutrient)
	}

	code, ok := nutrient.Code()
	if !ok || code != "CP" {
		t.Errorf("Code() = %q, %v, want CP, true", code, ok)
	}

	ingredient := mod.Decls[1].Ingredient
	if ingredient == nil || ingredient.Name != "corn" {
		t.Fatalf("unexpected ingredient decl: %+v", ingredient)
	}

	cost, ok := ingredient.Cost()
	if !ok || cost != 150 {
		t.Errorf("Cost() = %v, %v, want 150, true", cost, ok)
	}

	values := ingredient.NutrientValues()
	if len(values) != 1 || values[0].Nutrient != "protein" || values[0].Value != 8.5 {
		t.Errorf("NutrientValues() = %+v, want one protein=8.5 entry", values)
	}
}

func TestParse_Imports(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     string
		binding *formulang.ImportBinding
	}{
		{name: "namespaced", src: `import "nutrients/common"`, binding: nil},
		{name: "aliased", src: `import "nutrients/common" as common`, binding: &formulang.ImportBinding{Alias: ptr("common")}},
		{
			name:    "direct list",
			src:     `import "nutrients/common" { protein, energy }`,
			binding: &formulang.ImportBinding{Named: []string{"protein", "energy"}},
		},
		{name: "wildcard", src: `import "nutrients/common" { * }`, binding: &formulang.ImportBinding{Wildcard: true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mod, err := formulang.Parse([]byte(tc.src))
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}

			if len(mod.Imports) != 1 {
				t.Fatalf("got %d imports, want 1", len(mod.Imports))
			}

			imp := mod.Imports[0]
			if imp.Path != "nutrients/common" {
				t.Errorf("Path = %q, want nutrients/common", imp.Path)
			}

			if diff := cmp.Diff(tc.binding, imp.Binding, ignorePositions); diff != "" {
				t.Errorf("Binding mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassifyBlockItem_CompositionVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want formulang.CompositionKind
	}{
		{name: "bare group", src: "premix", want: formulang.CompGroupAll},
		{name: "group select", src: "premix.[a,b]", want: formulang.CompGroupSelect},
		{name: "all of nutrients", src: "base.nutrients", want: formulang.CompAllOf},
		{name: "all of ingredients", src: "base.ingredients", want: formulang.CompAllOf},
		{name: "subset", src: "base.nutrients.[protein,energy]", want: formulang.CompSubset},
		{name: "single bound", src: "base.nutrients.protein.min", want: formulang.CompSingleBound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			src := "formula f { batch_size 100 nutrients { " + tc.src + " } }"

			mod, err := formulang.Parse([]byte(src))
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}

			f := mod.Decls[0].Formula
			nb := f.NutrientsBlock()

			if nb == nil || len(nb.Items) != 1 {
				t.Fatalf("unexpected nutrients block: %+v", nb)
			}

			item := formulang.ClassifyBlockItem(nb.Items[0])
			if item.Composition == nil {
				t.Fatalf("item.Composition is nil, want %v", tc.want)
			}

			if item.Composition.Kind != tc.want {
				t.Errorf("Kind = %v, want %v", item.Composition.Kind, tc.want)
			}
		})
	}
}

func TestClassifyBlockItem_PlainConstraint(t *testing.T) {
	t.Parallel()

	src := `formula f { batch_size 100 nutrients { protein min 16 max 24 } }`

	mod, err := formulang.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	f := mod.Decls[0].Formula
	item := formulang.ClassifyBlockItem(f.NutrientsBlock().Items[0])

	if item.Constraint == nil || item.Constraint.Min == nil || item.Constraint.Max == nil {
		t.Fatalf("unexpected constraint: %+v", item.Constraint)
	}

	if got := item.Constraint.Min.Value(); got != 16 {
		t.Errorf("Min = %v, want 16", got)
	}

	if got := item.Constraint.Max.Value(); got != 24 {
		t.Errorf("Max = %v, want 24", got)
	}
}

func TestParse_RatioConstraint(t *testing.T) {
	t.Parallel()

	src := `formula f { batch_size 100 nutrients { calcium / phosphorus min 1.5 max 2.5 } }`

	mod, err := formulang.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	item := mod.Decls[0].Formula.NutrientsBlock().Items[0]
	if len(item.LHS.First.Rest) != 1 || item.LHS.First.Rest[0].Op != "/" {
		t.Errorf("ratio LHS = %+v, want a single '/' term", item.LHS.First.Rest)
	}
}

func TestParse_TemplateFormula(t *testing.T) {
	t.Parallel()

	mod, err := formulang.Parse([]byte(`template formula base { batch_size 100 }`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if !mod.Decls[0].Formula.IsTemplate {
		t.Error("IsTemplate = false, want true")
	}
}

func TestParse_ErrorRecovery(t *testing.T) {
	t.Parallel()

	src := `
		nutrient protein { code CP unit }

		ingredient corn {
			cost 150
		}
	`

	mod, err := formulang.ParseWithRecovery([]byte(src), true)
	if err == nil {
		t.Fatal("ParseWithRecovery() error = nil, want a recovered parse error")
	}

	if mod == nil {
		t.Fatal("ParseWithRecovery() returned a nil module alongside the error")
	}

	var ingredient *formulang.IngredientDecl

	for _, d := range mod.Decls {
		if d.Ingredient != nil {
			ingredient = d.Ingredient
		}
	}

	if ingredient == nil {
		t.Fatal("parser should recover and still find the ingredient declaration")
	}

	if ingredient.Name != "corn" {
		t.Errorf("ingredient.Name = %q, want corn", ingredient.Name)
	}
}
