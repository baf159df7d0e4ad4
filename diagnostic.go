package formulang

import (
	"errors"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Severity classifies a Diagnostic.
type Severity int

// Severity levels, ordered worst-first.
const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Diagnostic is the uniform error/warning/info value every pipeline stage
// produces.
type Diagnostic struct {
	Span     Span
	Severity Severity
	Message  string
	Code     string
}

// Diagnostic codes, grouped by the stage that produces them.
//
// CodeLexBadNumber and CodeParseMissingBlock are part of the taxonomy but
// have no call site: scanNumber's digit-run grammar can't produce a
// malformed Number token (anything that doesn't fit the shape just stops
// the scan and is re-lexed as something else), and participle's own
// unexpected-token message doesn't distinguish "a block was left open" from
// any other expected-but-missing token, so there's no signal to classify
// that case on without guessing at a recovered error's meaning.
const (
	CodeLexUnterminatedString  = "lex-unterminated-string"
	CodeLexUnterminatedComment = "lex-unterminated-comment"
	CodeLexBadNumber           = "lex-bad-number"
	CodeLexUnexpectedChar      = "lex-unexpected-char"

	CodeParseUnexpectedToken = "parse-unexpected-token"
	CodeParseMissingBlock    = "parse-missing-block"

	CodeImportNotFound = "import-not-found"
	CodeImportCycle     = "import-cycle"

	CodeNameUnknown         = "name-unknown"
	CodeNameAmbiguous       = "name-ambiguous"
	CodeNameRedeclared      = "name-redeclared"

	CodeTypeWrongKind        = "type-wrong-kind"
	CodeTypePercentOutside   = "type-percent-outside-ingredient-block"

	CodeCompositionCycle        = "composition-cycle"
	CodeCompositionMissingBound = "composition-missing-bound"

	CodeSemanticMissingCost      = "semantic-missing-cost"
	CodeSemanticMissingBatchSize = "semantic-missing-batch-size"

	CodeSolverInfeasible = "solver-infeasible"
	CodeSolverError      = "solver-error"
)

// participleError is the subset of participle.Error this package depends
// on, declared locally so a parse failure can be turned into a Diagnostic
// with a real Span without a direct participle.Error import at call sites.
type participleError interface {
	Position() lexer.Position
	Message() string
}

// ParseDiagnostics converts a parse failure - a single participle error or
// a *participle.RecoveryError wrapping several - into one Diagnostic per
// underlying error. Each diagnostic carries a real Span when the
// underlying error reports a position, and falls back to the zero Span
// otherwise.
func ParseDiagnostics(err error) []Diagnostic {
	if err == nil {
		return nil
	}

	var recoveryErr *participle.RecoveryError
	if errors.As(err, &recoveryErr) && len(recoveryErr.Errors) > 0 {
		out := make([]Diagnostic, 0, len(recoveryErr.Errors))

		for _, e := range recoveryErr.Errors {
			out = append(out, parseErrorDiagnostic(e))
		}

		return out
	}

	return []Diagnostic{parseErrorDiagnostic(err)}
}

func parseErrorDiagnostic(err error) Diagnostic {
	msg := err.Error()
	span := Span{}

	if pe, ok := err.(participleError); ok { //nolint:errorlint // a direct interface assertion, not a wrapped-error chain walk
		pos := pe.Position()
		span = Span{Start: pos, End: pos}
		msg = pe.Message()
	}

	return Diagnostic{
		Span:     span,
		Severity: SeverityError,
		Message:  msg,
		Code:     lexOrParseCode(msg),
	}
}

// lexOrParseCode tells a lexical failure's diagnostic code apart from a
// syntactic one. *LexError's Message() text is distinctive enough to
// classify on directly - this works whether the error reaches here as our
// own *LexError or as whatever opaque type participle wraps it in, since
// either way the message text participle reports originates unchanged from
// the lexer.
func lexOrParseCode(msg string) string {
	switch {
	case strings.Contains(msg, "unterminated string"):
		return CodeLexUnterminatedString
	case strings.Contains(msg, "unterminated block comment"):
		return CodeLexUnterminatedComment
	case strings.Contains(msg, "unexpected character"):
		return CodeLexUnexpectedChar
	default:
		return CodeParseUnexpectedToken
	}
}

// ByStartOffset sorts diagnostics in source order; useful for deterministic
// reporting and for tests comparing golden diagnostic lists.
type ByStartOffset []Diagnostic

func (d ByStartOffset) Len() int      { return len(d) }
func (d ByStartOffset) Swap(i, j int) { d[i], d[j] = d[j], d[i] }
func (d ByStartOffset) Less(i, j int) bool {
	return d[i].Span.Start.Offset < d[j].Span.Start.Offset
}
