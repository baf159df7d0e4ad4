package query_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/formulang/module"
	"github.com/rlch/formulang/query"
	"github.com/rlch/formulang/resolve"
)

// posAt returns the 1-based line/column immediately after marker's first
// occurrence in src - where a cursor would sit right after typing it.
func posAt(src, marker string) lexer.Position {
	idx := strings.Index(src, marker)
	if idx < 0 {
		panic("marker not found: " + marker)
	}

	end := idx + len(marker)
	line, col := 1, 1

	for i := 0; i < end; i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	return lexer.Position{Line: line, Column: col}
}

func hasLabel(items []query.CompletionItem, label string) bool {
	for _, it := range items {
		if it.Label == label {
			return true
		}
	}

	return false
}

func resolveScope(t *testing.T, src string) *resolve.Scope {
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

	return result.Scope
}

func TestGetCompletions_NutrientsBlockOffersInScopeNames(t *testing.T) {
	t.Parallel()

	src := `nutrient protein { code CP }

formula layer {
	batch_size 100
	nutrients {  }
}
`

	scope := resolveScope(t, src)
	mod := mustParse(t, src)

	pos := posAt(src, "nutrients {  ")

	items := query.GetCompletions(mod, scope, []byte(src), pos)

	if !hasLabel(items, "protein") {
		t.Errorf("items = %+v, want a 'protein' reference", items)
	}

	if !hasLabel(items, "min") || !hasLabel(items, "max") {
		t.Errorf("items = %+v, want 'min'/'max' bound keywords", items)
	}
}

func TestGetCompletions_ExistingBlockItemOffersOnlyBounds(t *testing.T) {
	t.Parallel()

	src := `nutrient protein { code CP }

formula layer {
	batch_size 100
	nutrients { protein }
}
`

	scope := resolveScope(t, src)
	mod := mustParse(t, src)

	pos := posAt(src, "nutrients { protein")

	items := query.GetCompletions(mod, scope, []byte(src), pos)

	if hasLabel(items, "energy") {
		t.Errorf("items = %+v, want no reference names while inside an existing item", items)
	}

	if !hasLabel(items, "min") {
		t.Errorf("items = %+v, want the 'min' bound keyword", items)
	}
}

func TestGetCompletions_NutrientDeclOffersProperties(t *testing.T) {
	t.Parallel()

	src := `nutrient protein { code CP  }
`

	scope := resolveScope(t, src)
	mod := mustParse(t, src)

	pos := posAt(src, "code CP  ")

	items := query.GetCompletions(mod, scope, []byte(src), pos)

	if !hasLabel(items, "unit") || !hasLabel(items, "desc") {
		t.Errorf("items = %+v, want nutrient property keywords", items)
	}
}

func TestGetCompletions_GroupReferenceOffersCompositionSuffix(t *testing.T) {
	t.Parallel()

	src := `ingredient corn { cost 150 }
group premix { corn }

formula layer {
	batch_size 100
	ingredients {  }
}
`

	scope := resolveScope(t, src)
	mod := mustParse(t, src)

	pos := posAt(src, "ingredients {  ")

	items := query.GetCompletions(mod, scope, []byte(src), pos)

	if !hasLabel(items, "premix.[") {
		t.Errorf("items = %+v, want a 'premix.[' composition suffix", items)
	}
}
