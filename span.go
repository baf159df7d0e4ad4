// Package formulang implements the lexer, parser and AST for the Formulang
// feed-formulation language.
package formulang

import "github.com/alecthomas/participle/v2/lexer"

// Span is a half-open byte range [Start, End) into a source unit.
// Every AST node, symbol and diagnostic carries one.
type Span struct {
	Start lexer.Position
	End   lexer.Position
}

// Source is an immutable named text buffer with a resolved canonical path.
type Source struct {
	Path string
	Text string
}

// Slice returns the substring of the source covered by span.
func (s Source) Slice(span Span) string {
	if span.Start.Offset < 0 || span.End.Offset > len(s.Text) || span.Start.Offset > span.End.Offset {
		return ""
	}

	return s.Text[span.Start.Offset:span.End.Offset]
}
