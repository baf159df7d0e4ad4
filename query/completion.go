package query

import (
	"strings"
	"unicode"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/formulang"
	"github.com/rlch/formulang/resolve"
)

// CompletionKind classifies what a Completion position is asking for.
type CompletionKind string

// Completion kinds.
const (
	CompletionKindNone       CompletionKind = "none"
	CompletionKindKeyword    CompletionKind = "keyword"
	CompletionKindProperty   CompletionKind = "property"
	CompletionKindReference  CompletionKind = "reference"
	CompletionKindImportBind CompletionKind = "import_binding"
)

// CompletionItem is one candidate offered at a position.
type CompletionItem struct {
	Label  string
	Kind   CompletionKind
	Detail string
}

// topLevelKeywords are offered at the start of a line outside any
// declaration body.
var topLevelKeywords = []string{"nutrient", "ingredient", "group", "formula", "template", "import"}

// nutrientProperties/ingredientProperties/formulaProperties are offered
// inside the corresponding declaration body.
var (
	nutrientProperties  = []string{"name", "code", "desc", "unit"}
	ingredientProperties = []string{"name", "desc", "unit", "cost"}
	formulaProperties    = []string{"name", "desc", "batch_size", "nutrients", "ingredients"}
)

var boundKeywords = []string{"min", "max"}

// GetCompletions offers candidates for pos within mod, using scope (from a
// resolved module) to offer in-scope nutrient/ingredient/group/formula
// names inside block bodies.
func GetCompletions(mod *formulang.Module, scope *resolve.Scope, source []byte, pos lexer.Position) []CompletionItem {
	line := lineAt(source, pos.Line)
	before := beforeColumn(line, pos.Column)
	prefix := extractPrefix(before)
	trimmed := strings.TrimLeft(before, " \t")

	node := NodeAtPosition(mod, pos)

	var items []CompletionItem

	switch {
	case trimmed == "" && node == nil:
		items = keywordItems(topLevelKeywords)
	case node == nil:
		items = keywordItems(topLevelKeywords)
	default:
		items = completionsForNode(node, scope)
	}

	return filterByPrefix(items, prefix)
}

func completionsForNode(node formulang.Node, scope *resolve.Scope) []CompletionItem {
	switch node.(type) {
	case *formulang.NutrientDecl:
		return keywordItems(nutrientProperties)
	case *formulang.IngredientDecl:
		return keywordItems(ingredientProperties)
	case *formulang.FormulaDecl:
		return keywordItems(formulaProperties)
	case *formulang.NutrientsBlock:
		return append(referenceItems(scope, resolve.SymbolNutrient, resolve.SymbolFormula, resolve.SymbolGroup), boundItems()...)
	case *formulang.IngredientsBlock:
		return append(referenceItems(scope, resolve.SymbolIngredient, resolve.SymbolFormula, resolve.SymbolGroup), boundItems()...)
	case *formulang.BlockItem:
		return boundItems()
	case *formulang.Import:
		return []CompletionItem{{Label: "as", Kind: CompletionKindKeyword}, {Label: "{*}", Kind: CompletionKindImportBind}}
	default:
		return nil
	}
}

func boundItems() []CompletionItem { return keywordItems(boundKeywords) }

func keywordItems(names []string) []CompletionItem {
	items := make([]CompletionItem, 0, len(names))

	for _, n := range names {
		items = append(items, CompletionItem{Label: n, Kind: CompletionKindKeyword})
	}

	return items
}

// referenceItems offers every name visible in scope matching one of kinds,
// plus every dotted composition path a formula/group name supports
// (".nutrients", ".ingredients", ".[").
func referenceItems(scope *resolve.Scope, kinds ...resolve.SymbolKind) []CompletionItem {
	if scope == nil {
		return nil
	}

	wanted := make(map[resolve.SymbolKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	var items []CompletionItem

	for name, sym := range scope.Names() {
		if sym == nil || !wanted[sym.Kind] {
			continue
		}

		items = append(items, CompletionItem{Label: name, Kind: CompletionKindReference, Detail: sym.Kind.String()})

		if sym.Kind == resolve.SymbolFormula {
			items = append(items,
				CompletionItem{Label: name + ".nutrients", Kind: CompletionKindReference, Detail: "composition"},
				CompletionItem{Label: name + ".ingredients", Kind: CompletionKindReference, Detail: "composition"},
			)
		}

		if sym.Kind == resolve.SymbolGroup {
			items = append(items, CompletionItem{Label: name + ".[", Kind: CompletionKindReference, Detail: "composition"})
		}
	}

	return items
}

func filterByPrefix(items []CompletionItem, prefix string) []CompletionItem {
	if prefix == "" {
		return items
	}

	lower := strings.ToLower(prefix)

	filtered := make([]CompletionItem, 0, len(items))

	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(item.Label), lower) {
			filtered = append(filtered, item)
		}
	}

	return filtered
}

func extractPrefix(text string) string {
	end := len(text)
	start := end

	for i := end - 1; i >= 0; i-- {
		c := rune(text[i])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			start = i
		} else {
			break
		}
	}

	return text[start:end]
}

func lineAt(source []byte, line int) string {
	lines := strings.Split(string(source), "\n")
	if line-1 < 0 || line-1 >= len(lines) {
		return ""
	}

	return lines[line-1]
}

func beforeColumn(line string, column int) string {
	col := column - 1
	if col < 0 {
		return ""
	}

	if col > len(line) {
		col = len(line)
	}

	return line[:col]
}
