package resolve_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rlch/formulang"
	"github.com/rlch/formulang/module"
	"github.com/rlch/formulang/resolve"
)

func resolveSource(t *testing.T, src string) (*module.ResolvedContext, *resolve.Result, []formulang.Diagnostic) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "root.fm")

	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}

	loader := module.NewLoader()

	ctx, err := module.NewResolver(loader).Resolve(path)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	result, diags := resolve.Module(ctx.Root, ctx)

	return ctx, result, diags
}

func TestModule_CleanFormula(t *testing.T) {
	t.Parallel()

	_, _, diags := resolveSource(t, `
		nutrient protein { code CP }
		ingredient corn { cost 150 protein 8.5 }

		formula layer {
			batch_size 1000
			nutrients { protein min 16 max 24 }
			ingredients { corn min 0 max 1000 }
		}
	`)

	if len(diags) != 0 {
		t.Errorf("diagnostics = %+v, want none", diags)
	}
}

func TestModule_UnknownReference(t *testing.T) {
	t.Parallel()

	_, _, diags := resolveSource(t, `
		formula layer {
			batch_size 1000
			nutrients { protein min 16 }
		}
	`)

	if len(diags) != 1 || diags[0].Code != formulang.CodeNameUnknown {
		t.Fatalf("diagnostics = %+v, want one CodeNameUnknown", diags)
	}
}

func TestModule_WrongKindReference(t *testing.T) {
	t.Parallel()

	_, _, diags := resolveSource(t, `
		ingredient corn { cost 150 }

		formula layer {
			batch_size 1000
			nutrients { corn min 16 }
		}
	`)

	if len(diags) != 1 || diags[0].Code != formulang.CodeTypeWrongKind {
		t.Fatalf("diagnostics = %+v, want one CodeTypeWrongKind", diags)
	}
}

func TestModule_PercentOutsideIngredientsBlock(t *testing.T) {
	t.Parallel()

	_, _, diags := resolveSource(t, `
		nutrient protein { code CP }

		formula layer {
			batch_size 1000
			nutrients { protein min 16% }
		}
	`)

	if len(diags) != 1 || diags[0].Code != formulang.CodeTypePercentOutside {
		t.Fatalf("diagnostics = %+v, want one CodeTypePercentOutside", diags)
	}
}

func TestModule_GroupSelectUnknownMember(t *testing.T) {
	t.Parallel()

	_, _, diags := resolveSource(t, `
		ingredient corn { cost 150 }
		ingredient soy { cost 300 }
		group premix { corn, soy }

		formula layer {
			batch_size 1000
			ingredients { premix.[corn,wheat] }
		}
	`)

	if len(diags) != 1 || diags[0].Code != formulang.CodeNameUnknown {
		t.Fatalf("diagnostics = %+v, want one CodeNameUnknown for 'wheat'", diags)
	}
}

func TestModule_MissingBaseBoundIsWarning(t *testing.T) {
	t.Parallel()

	_, _, diags := resolveSource(t, `
		nutrient protein { code CP }
		nutrient energy { code ME }

		template formula base {
			batch_size 1000
			nutrients { protein min 16 }
		}

		formula layer {
			batch_size 1000
			nutrients { base.nutrients.energy.min }
		}
	`)

	if len(diags) != 1 {
		t.Fatalf("diagnostics = %+v, want exactly one", diags)
	}

	if diags[0].Severity != formulang.SeverityWarning || diags[0].Code != formulang.CodeCompositionMissingBound {
		t.Errorf("diag = %+v, want a CodeCompositionMissingBound warning", diags[0])
	}
}

func TestModule_WildcardAmbiguity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	write := func(name, src string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(src), 0o600); err != nil {
			t.Fatal(err)
		}

		return p
	}

	write("a.fm", `nutrient protein { code CP }`)
	write("b.fm", `nutrient protein { code CP2 }`)

	rootPath := write("root.fm", `
		import "./a" { * }
		import "./b" { * }

		formula layer {
			batch_size 1000
			nutrients { protein min 16 }
		}
	`)

	loader := module.NewLoader()

	ctx, err := module.NewResolver(loader).Resolve(rootPath)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	_, diags := resolve.Module(ctx.Root, ctx)

	if len(diags) != 1 || diags[0].Code != formulang.CodeNameAmbiguous {
		t.Fatalf("diagnostics = %+v, want one CodeNameAmbiguous", diags)
	}
}

func TestModule_CrossModuleFormulaReference(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	basePath := filepath.Join(dir, "base.fm")
	if err := os.WriteFile(basePath, []byte(`
		nutrient protein { code CP }

		template formula base {
			batch_size 1000
			nutrients { protein min 16 max 24 }
		}
	`), 0o600); err != nil {
		t.Fatal(err)
	}

	rootPath := filepath.Join(dir, "root.fm")
	if err := os.WriteFile(rootPath, []byte(`
		import "./base" { base }

		formula layer {
			batch_size 1000
			nutrients { base.nutrients }
		}
	`), 0o600); err != nil {
		t.Fatal(err)
	}

	loader := module.NewLoader()

	ctx, err := module.NewResolver(loader).Resolve(rootPath)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	_, diags := resolve.Module(ctx.Root, ctx)

	if len(diags) != 0 {
		t.Errorf("diagnostics = %+v, want none", diags)
	}
}
