package formulang_test

import (
	"testing"

	"github.com/rlch/formulang"
)

func TestLexer_Symbols(t *testing.T) {
	t.Parallel()

	def := formulang.ExportedLexer()
	symbols := def.Symbols()

	expected := []string{
		"EOF", "Comment", "String", "Number", "Percent", "Ident", "Op",
		"Dot", "Colon", "Comma", "Whitespace",
		"(", ")", "[", "]", "{", "}",
		"nutrient", "ingredient", "group", "formula", "template", "import",
		"as", "min", "max", "nutrients", "ingredients",
	}

	for _, name := range expected {
		if _, ok := symbols[name]; !ok {
			t.Errorf("missing symbol: %s", name)
		}
	}
}

type tokenExpect struct {
	typ string
	val string
}

func lexTokens(t *testing.T, input string) []tokenExpect {
	t.Helper()

	def := formulang.ExportedLexer()
	symbols := def.Symbols()

	names := make(map[any]string, len(symbols))
	for name, typ := range symbols {
		if prev, dup := names[typ]; dup && len(prev) > len(name) {
			continue // block aliases share a token type; keep the longer, canonical name
		}

		names[typ] = name
	}

	lx, err := def.LexString("test", input)
	if err != nil {
		t.Fatalf("LexString() error: %v", err)
	}

	var out []tokenExpect

	for {
		tok, err := lx.Next()
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}

		if tok.EOF() {
			break
		}

		out = append(out, tokenExpect{typ: names[tok.Type], val: tok.Value})
	}

	return out
}

func TestLexer_Keywords(t *testing.T) {
	t.Parallel()

	toks := lexTokens(t, "nutrient protein { }")
	if len(toks) != 7 { // nutrient, ws, protein, ws, {, ws, }
		t.Fatalf("got %d tokens, want 7: %+v", len(toks), toks)
	}

	if toks[0].typ != "nutrient" || toks[2].typ != "Ident" || toks[2].val != "protein" {
		t.Errorf("unexpected tokens: %+v", toks[:3])
	}
}

func TestLexer_BlockAliases(t *testing.T) {
	t.Parallel()

	toks := lexTokens(t, "nuts ings")
	if len(toks) != 3 || toks[0].typ != "nutrients" || toks[2].typ != "ingredients" {
		t.Errorf("aliases did not resolve to block keywords: %+v", toks)
	}
}

func TestLexer_PercentFusion(t *testing.T) {
	t.Parallel()

	toks := lexTokens(t, "18% 18")
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(toks), toks)
	}

	if toks[0].typ != "Percent" || toks[0].val != "18%" {
		t.Errorf("percent literal not fused: %+v", toks[0])
	}

	if toks[2].typ != "Number" || toks[2].val != "18" {
		t.Errorf("bare number misclassified: %+v", toks[2])
	}
}

func TestLexer_NegativeNumberFolding(t *testing.T) {
	t.Parallel()

	toks := lexTokens(t, "min -5")
	if len(toks) != 3 || toks[2].typ != "Number" || toks[2].val != "-5" {
		t.Errorf("negative number not folded into one token: %+v", toks)
	}
}

func TestLexer_LineComment(t *testing.T) {
	t.Parallel()

	toks := lexTokens(t, "// a comment\nprotein")
	if len(toks) != 3 || toks[0].typ != "Comment" || toks[2].typ != "Ident" {
		t.Errorf("unexpected tokens: %+v", toks)
	}
}

func TestLexer_BlockComment(t *testing.T) {
	t.Parallel()

	toks := lexTokens(t, "/* block */protein")
	if len(toks) != 2 || toks[0].typ != "Comment" || toks[1].typ != "Ident" {
		t.Errorf("unexpected tokens: %+v", toks)
	}
}

func TestLexer_UnterminatedString(t *testing.T) {
	t.Parallel()

	def := formulang.ExportedLexer()

	lx, err := def.LexString("test", `desc "unterminated`)
	if err != nil {
		t.Fatalf("LexString() error: %v", err)
	}

	if _, err := lx.Next(); err != nil { // Ident
		t.Fatalf("Next() error: %v", err)
	}

	if _, err := lx.Next(); err != nil { // Whitespace
		t.Fatalf("Next() error: %v", err)
	}

	if _, err := lx.Next(); err == nil {
		t.Error("expected error for unterminated string")
	}
}

func TestLexer_UnterminatedBlockComment(t *testing.T) {
	t.Parallel()

	def := formulang.ExportedLexer()

	lx, err := def.LexString("test", "/* never closes")
	if err != nil {
		t.Fatalf("LexString() error: %v", err)
	}

	if _, err := lx.Next(); err == nil {
		t.Error("expected error for unterminated block comment")
	}
}

func TestLexer_UnexpectedCharacter(t *testing.T) {
	t.Parallel()

	def := formulang.ExportedLexer()

	lx, err := def.LexString("test", "@")
	if err != nil {
		t.Fatalf("LexString() error: %v", err)
	}

	if _, err := lx.Next(); err == nil {
		t.Error("expected error for unexpected character")
	}
}
