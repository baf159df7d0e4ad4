package query

import (
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/formulang"
)

// PositionToLexer converts LSP-style 0-based line/character into
// participle's 1-based line/column.
func PositionToLexer(line, character int) lexer.Position {
	return lexer.Position{Line: line + 1, Column: character + 1}
}

// OffsetToPosition converts a 0-based byte offset into source into
// participle's 1-based line/column, using the same line/column bookkeeping
// the lexer itself does: a newline ends the current line and resets the
// column to 1. An offset beyond the end of source clamps to the position
// just past the last byte.
func OffsetToPosition(source []byte, offset int) lexer.Position {
	if offset > len(source) {
		offset = len(source)
	}

	line, col := 1, 1

	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	return lexer.Position{Offset: offset, Line: line, Column: col}
}

func containsPosition(span formulang.Span, pos lexer.Position) bool {
	if pos.Line < span.Start.Line || (pos.Line == span.Start.Line && pos.Column < span.Start.Column) {
		return false
	}

	if pos.Line > span.End.Line || (pos.Line == span.End.Line && pos.Column > span.End.Column) {
		return false
	}

	return true
}

// NodeAtPosition finds the most specific AST node containing pos.
func NodeAtPosition(mod *formulang.Module, pos lexer.Position) formulang.Node { //nolint:ireturn
	if mod == nil || !containsPosition(mod.Span(), pos) {
		return nil
	}

	var best formulang.Node = mod

	for _, imp := range mod.Imports {
		if containsPosition(imp.Span(), pos) {
			best = imp
		}
	}

	for _, decl := range mod.Decls {
		if n := nodeInDecl(decl, pos); n != nil {
			best = n
		}
	}

	return best
}

func nodeInDecl(decl *formulang.Decl, pos lexer.Position) formulang.Node { //nolint:ireturn
	switch {
	case decl.Nutrient != nil && containsPosition(decl.Nutrient.Span(), pos):
		return nodeInProps(decl.Nutrient.Props, pos, decl.Nutrient)
	case decl.Ingredient != nil && containsPosition(decl.Ingredient.Span(), pos):
		return nodeInProps(decl.Ingredient.Items, pos, decl.Ingredient)
	case decl.Group != nil && containsPosition(decl.Group.Span(), pos):
		return decl.Group
	case decl.Formula != nil && containsPosition(decl.Formula.Span(), pos):
		return nodeInFormula(decl.Formula, pos)
	default:
		return nil
	}
}

func nodeInProps(props []*formulang.Property, pos lexer.Position, fallback formulang.Node) formulang.Node { //nolint:ireturn
	for _, p := range props {
		if containsPosition(p.Span(), pos) {
			return p
		}
	}

	return fallback
}

func nodeInFormula(f *formulang.FormulaDecl, pos lexer.Position) formulang.Node { //nolint:ireturn
	var best formulang.Node = f

	for _, s := range f.Sections {
		if !containsPosition(s.Span(), pos) {
			continue
		}

		switch {
		case s.Property != nil:
			best = s.Property
		case s.Nutrients != nil:
			best = nodeInBlockItems(s.Nutrients.Items, pos, s.Nutrients)
		case s.Ingredients != nil:
			best = nodeInBlockItems(s.Ingredients.Items, pos, s.Ingredients)
		}
	}

	return best
}

func nodeInBlockItems(items []*formulang.BlockItem, pos lexer.Position, fallback formulang.Node) formulang.Node { //nolint:ireturn
	for _, item := range items {
		if containsPosition(item.Span(), pos) {
			return item
		}
	}

	return fallback
}
