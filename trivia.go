package formulang

// Trivia represents a non-semantic lexeme (currently: comments). Formulang
// discards whitespace outright since no tooling feature needs blank-line
// detection.
type Trivia struct {
	Type TriviaType
	Text string
	Span Span
}

// TriviaType distinguishes kinds of trivia.
type TriviaType int

// TriviaComment is the only trivia kind Formulang collects.
const TriviaComment TriviaType = 0

// TriviaList holds all trivia collected during lexing.
type TriviaList struct {
	items []Trivia
}

// Add appends trivia to the list.
func (t *TriviaList) Add(trivia Trivia) { t.items = append(t.items, trivia) }

// All returns all collected trivia.
func (t *TriviaList) All() []Trivia { return t.items }

// commentMap stores leading/trailing comments for AST nodes, keyed by span.
type commentMap map[Span]*nodeComments

type nodeComments struct {
	leading  []string
	trailing string
}

// attachComments associates collected comment trivia with AST nodes based
// on line proximity: a comment on the same line as (and after) a node's end
// is that node's trailing comment; a comment on an earlier line, closest to
// a following node, is that node's leading comment.
func attachComments(mod *Module, trivia *TriviaList) {
	if trivia == nil || len(trivia.items) == 0 {
		return
	}

	var spans []Span
	collectSpans(mod, &spans)

	cm := make(commentMap)

	for _, t := range trivia.All() {
		if attachTrailing(t, spans, cm) {
			continue
		}

		attachLeading(t, spans, cm)
	}

	applyComments(mod, cm)
}

func attachTrailing(t Trivia, spans []Span, cm commentMap) bool {
	for _, span := range spans {
		if t.Span.Start.Line == span.End.Line && t.Span.Start.Offset > span.End.Offset {
			if cm[span] == nil {
				cm[span] = &nodeComments{}
			}

			cm[span].trailing = t.Text

			return true
		}
	}

	return false
}

func attachLeading(t Trivia, spans []Span, cm commentMap) {
	for _, span := range spans {
		after := t.Span.End.Line < span.Start.Line ||
			(t.Span.End.Line == span.Start.Line && t.Span.End.Offset < span.Start.Offset)
		if after && isClosestNode(t.Span, span, spans) {
			if cm[span] == nil {
				cm[span] = &nodeComments{}
			}

			cm[span].leading = append(cm[span].leading, t.Text)

			return
		}
	}
}

// isClosestNode reports whether no other node's span sits between the
// comment and targetSpan.
func isClosestNode(commentSpan, targetSpan Span, allSpans []Span) bool {
	for _, span := range allSpans {
		if span == targetSpan {
			continue
		}

		between := span.Start.Line > commentSpan.End.Line && span.Start.Line < targetSpan.Start.Line
		sameLineBetween := span.Start.Line == commentSpan.End.Line &&
			span.Start.Offset > commentSpan.End.Offset &&
			span.Start.Line < targetSpan.Start.Line

		if between || sameLineBetween {
			return false
		}
	}

	return true
}

func collectSpans(mod *Module, spans *[]Span) {
	if mod == nil {
		return
	}

	*spans = append(*spans, mod.Span())

	for _, imp := range mod.Imports {
		*spans = append(*spans, imp.Span())
	}

	for _, decl := range mod.Decls {
		switch {
		case decl.Nutrient != nil:
			*spans = append(*spans, decl.Nutrient.Span())
		case decl.Ingredient != nil:
			*spans = append(*spans, decl.Ingredient.Span())
		case decl.Group != nil:
			*spans = append(*spans, decl.Group.Span())
		case decl.Formula != nil:
			*spans = append(*spans, decl.Formula.Span())
		}
	}
}

func applyComments(mod *Module, cm commentMap) {
	if mod == nil {
		return
	}

	if c := cm[mod.Span()]; c != nil {
		mod.LeadingComments = c.leading
		mod.TrailingComment = c.trailing
	}

	for _, imp := range mod.Imports {
		if c := cm[imp.Span()]; c != nil {
			imp.LeadingComments = c.leading
			imp.TrailingComment = c.trailing
		}
	}

	for _, decl := range mod.Decls {
		applyDeclComments(decl, cm)
	}
}

func applyDeclComments(decl *Decl, cm commentMap) {
	switch {
	case decl.Nutrient != nil:
		if c := cm[decl.Nutrient.Span()]; c != nil {
			decl.Nutrient.LeadingComments = c.leading
			decl.Nutrient.TrailingComment = c.trailing
		}
	case decl.Ingredient != nil:
		if c := cm[decl.Ingredient.Span()]; c != nil {
			decl.Ingredient.LeadingComments = c.leading
			decl.Ingredient.TrailingComment = c.trailing
		}
	case decl.Group != nil:
		if c := cm[decl.Group.Span()]; c != nil {
			decl.Group.LeadingComments = c.leading
			decl.Group.TrailingComment = c.trailing
		}
	case decl.Formula != nil:
		if c := cm[decl.Formula.Span()]; c != nil {
			decl.Formula.LeadingComments = c.leading
			decl.Formula.TrailingComment = c.trailing
		}
	}
}
