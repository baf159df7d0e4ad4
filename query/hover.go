package query

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/formulang"
)

// Hover is the markdown content and span get_hover returns for one
// position, or nil if that position falls on nothing hoverable.
type Hover struct {
	Contents string
	Span     formulang.Span
}

// GetHover finds the most specific node at pos and renders it as markdown,
// dispatching by node type and built from the declaration's name, desc,
// unit, and kind.
func GetHover(mod *formulang.Module, pos lexer.Position) *Hover {
	node := NodeAtPosition(mod, pos)
	if node == nil {
		return nil
	}

	content := hoverContent(node)
	if content == "" {
		return nil
	}

	return &Hover{Contents: content, Span: node.Span()}
}

func hoverContent(node formulang.Node) string {
	switch n := node.(type) {
	case *formulang.NutrientDecl:
		return hoverNutrient(n)
	case *formulang.IngredientDecl:
		return hoverIngredient(n)
	case *formulang.GroupDecl:
		return hoverGroup(n)
	case *formulang.FormulaDecl:
		return hoverFormula(n)
	case *formulang.Import:
		return hoverImport(n)
	case *formulang.BlockItem:
		return hoverBlockItem(n)
	default:
		return ""
	}
}

func hoverNutrient(n *formulang.NutrientDecl) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("**Nutrient:** `%s`\n\n", n.Name))

	if code, ok := n.Code(); ok {
		b.WriteString(fmt.Sprintf("**Code:** `%s`\n", code))
	}

	if unit, ok := n.Unit(); ok {
		b.WriteString(fmt.Sprintf("**Unit:** %s\n", unit))
	}

	if desc, ok := n.Description(); ok {
		b.WriteString("\n" + desc + "\n")
	}

	return b.String()
}

func hoverIngredient(n *formulang.IngredientDecl) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("**Ingredient:** `%s`\n\n", n.Name))

	if cost, ok := n.Cost(); ok {
		b.WriteString(fmt.Sprintf("**Cost:** %g\n", cost))
	}

	values := n.NutrientValues()
	if len(values) > 0 {
		b.WriteString("\n**Nutrient content:**\n")

		for _, v := range values {
			b.WriteString(fmt.Sprintf("- %s: %g\n", v.Nutrient, v.Value))
		}
	}

	if desc, ok := n.Description(); ok {
		b.WriteString("\n" + desc + "\n")
	}

	return b.String()
}

func hoverGroup(n *formulang.GroupDecl) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("**Group:** `%s`\n\n", n.Name))
	b.WriteString(fmt.Sprintf("**Members:** %s\n", strings.Join(n.Members, ", ")))

	return b.String()
}

func hoverFormula(n *formulang.FormulaDecl) string {
	var b strings.Builder

	kind := "Formula"
	if n.IsTemplate {
		kind = "Template formula"
	}

	b.WriteString(fmt.Sprintf("**%s:** `%s`\n\n", kind, n.DisplayName()))

	if batch, ok := n.BatchSize(); ok {
		b.WriteString(fmt.Sprintf("**Batch size:** %g\n", batch))
	}

	if desc, ok := n.Description(); ok {
		b.WriteString("\n" + desc + "\n")
	}

	return b.String()
}

func hoverImport(n *formulang.Import) string {
	var b strings.Builder

	b.WriteString("**Import**\n\n")
	b.WriteString(fmt.Sprintf("**Path:** `%s`\n", n.Path))

	switch {
	case n.Binding == nil:
	case n.Binding.Alias != nil:
		b.WriteString(fmt.Sprintf("**Alias:** `%s`\n", *n.Binding.Alias))
	case n.Binding.Wildcard:
		b.WriteString("**Binding:** wildcard `{*}`\n")
	case len(n.Binding.Named) > 0:
		b.WriteString(fmt.Sprintf("**Binding:** `{%s}`\n", strings.Join(n.Binding.Named, ", ")))
	}

	return b.String()
}

func hoverBlockItem(n *formulang.BlockItem) string {
	ref := n.LHS.IsSimpleRef()
	if ref == nil {
		return ""
	}

	var b strings.Builder

	b.WriteString(fmt.Sprintf("**Reference:** `%s`\n", ref.Head))

	if n.Min != nil {
		b.WriteString(fmt.Sprintf("**Min:** %g\n", n.Min.Value()))
	}

	if n.Max != nil {
		b.WriteString(fmt.Sprintf("**Max:** %g\n", n.Max.Value()))
	}

	return b.String()
}
