package formulang

import (
	"github.com/alecthomas/participle/v2"
)

// dslLexer is the custom lexer for Formulang source.
var dslLexer = newDSLLexer()

var parser = participle.MustBuild[Module](
	participle.Lexer(dslLexer),
	participle.Unquote("String"),
	participle.Elide("Whitespace", "Comment"),
)

// defaultRecoveryStrategies returns the recovery strategies used when
// parsing with recovery enabled. Tried in order:
//  1. Skip to a brace closer or the start of a new top-level declaration.
//  2. Skip past a matching '{' '}' pair (so a broken block doesn't swallow
//     the rest of the file).
func defaultRecoveryStrategies() []participle.RecoveryStrategy {
	return []participle.RecoveryStrategy{
		participle.SkipUntil(
			"}",
			"nutrient",
			"ingredient",
			"group",
			"formula",
			"template",
			"import",
		),
		participle.NestedDelimiters("{", "}"),
		participle.NestedDelimiters("(", ")"),
	}
}

// Parse parses Formulang source and returns the AST with comments attached
// to nodes. Thread-safe.
func Parse(data []byte) (*Module, error) {
	return ParseWithRecovery(data, false)
}

// ParseWithRecovery parses Formulang source, optionally recovering from
// syntax errors to produce the most complete partial AST possible. Used by
// the diagnostics/query service, which must succeed on partially-broken
// inputs.
func ParseWithRecovery(data []byte, withRecovery bool) (*Module, error) {
	dslLexer.Lock()
	defer dslLexer.Unlock()

	var (
		mod *Module
		err error
	)

	if withRecovery {
		mod, err = parser.ParseBytes("", data,
			participle.Recover(defaultRecoveryStrategies()...),
			participle.MaxRecoveryErrors(50),
		)
	} else {
		mod, err = parser.ParseBytes("", data)
	}

	if mod != nil {
		attachComments(mod, dslLexer.Trivia())
	}

	return mod, err
}

// ExportedLexer returns the lexer definition for testing purposes.
//
//nolint:revive // unexported-return: intentionally returns unexported type for internal test use
func ExportedLexer() *dslDefinition {
	return dslLexer
}
