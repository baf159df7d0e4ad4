package formulang

// BlockKind tags whether a block item/expression lives inside a formula's
// "nutrients" or "ingredients" block, carrying a block_kind tag through
// resolution.
type BlockKind int

// Block kinds.
const (
	BlockNutrients BlockKind = iota
	BlockIngredients
)

func (k BlockKind) String() string {
	if k == BlockIngredients {
		return "ingredients"
	}

	return "nutrients"
}

// CompositionKind discriminates the CompositionRef variants.
type CompositionKind int

// Composition reference kinds.
const (
	CompAllOf CompositionKind = iota
	CompSubset
	CompSingleBound
	CompGroupSelect
	CompGroupAll
)

// Bound names used by CompSingleBound.
const (
	BoundMin = "min"
	BoundMax = "max"
)

// CompositionRef is a classified composition reference: base.nutrients,
// base.nutrients.[x,y], base.nutrients.protein.min, group.[a,b], or a bare
// group name.
type CompositionRef struct {
	Span      Span
	Kind      CompositionKind
	Path      string // the formula or group name referenced
	BlockKind BlockKind
	Names     []string // CompSubset, CompGroupSelect
	Which     string   // CompSingleBound: "min" or "max"

	// LHS is the original expression this reference was classified from.
	// Carried along so a CompGroupAll that turns out, at resolve time, to
	// name an ordinary nutrient/ingredient rather than a group can fall
	// back to an ordinary bound-less Constraint without rebuilding the
	// expression tree from Path.
	LHS *Expr
}

// Constraint is an ordinary nutrient/ingredient constraint: an expression
// bounded by an optional min and/or max.
type Constraint struct {
	Span Span
	LHS  *Expr
	Min  *Bound
	Max  *Bound
}

// Item is one classified block item: exactly one of Composition or
// Constraint is non-nil.
type Item struct {
	Composition *CompositionRef
	Constraint  *Constraint
}

// ClassifyBlockItem turns a parsed BlockItem into either a CompositionRef or
// a plain Constraint. The grammar (ast.go) deliberately parses both shapes
// the same way - a bare dotted reference is syntactically indistinguishable
// from the left-hand side of a bound-less constraint - so the split happens
// here, immediately after parsing, rather than in the grammar itself. The
// referenced block_kind for AllOf/Subset/SingleBound is read off the path
// itself (".nutrients" vs ".ingredients"), not from the containing block;
// whether that matches the containing block is a resolver-time check.
func ClassifyBlockItem(item *BlockItem) Item {
	if item.Min == nil && item.Max == nil {
		if ref := item.LHS.IsSimpleRef(); ref != nil {
			if comp := classifyRef(item.Span(), ref); comp != nil {
				comp.LHS = item.LHS

				return Item{Composition: comp}
			}
		}
	}

	return Item{Constraint: &Constraint{Span: item.Span(), LHS: item.LHS, Min: item.Min, Max: item.Max}}
}

// classifyRef classifies a bare dotted reference purely syntactically, with
// no access to the scope a name resolves against. A zero-tail reference is
// provisionally classified CompGroupAll - the shape a bare group mention
// has - but it's just as often a plain nutrient/ingredient named with no
// bound at all; resolve.Module reclassifies that case into an ordinary
// Constraint once it can tell the two apart by symbol kind.
func classifyRef(span Span, ref *RefExpr) *CompositionRef {
	switch len(ref.Tail) {
	case 0:
		return &CompositionRef{Span: span, Kind: CompGroupAll, Path: ref.Head}

	case 1:
		t := ref.Tail[0]

		switch {
		case t.Nutrients:
			return &CompositionRef{Span: span, Kind: CompAllOf, Path: ref.Head, BlockKind: BlockNutrients}
		case t.Ingredients:
			return &CompositionRef{Span: span, Kind: CompAllOf, Path: ref.Head, BlockKind: BlockIngredients}
		case t.List != nil:
			return &CompositionRef{Span: span, Kind: CompGroupSelect, Path: ref.Head, Names: t.List}
		default:
			return nil
		}

	case 2: //nolint:mnd // dotted-path arity is intrinsic to the grammar, not a magic number
		head, names := ref.Tail[0], ref.Tail[1]
		if names.List == nil {
			return nil
		}

		switch {
		case head.Nutrients:
			return &CompositionRef{Span: span, Kind: CompSubset, Path: ref.Head, BlockKind: BlockNutrients, Names: names.List}
		case head.Ingredients:
			return &CompositionRef{Span: span, Kind: CompSubset, Path: ref.Head, BlockKind: BlockIngredients, Names: names.List}
		default:
			return nil
		}

	case 3: //nolint:mnd // dotted-path arity is intrinsic to the grammar, not a magic number
		head, name, which := ref.Tail[0], ref.Tail[1], ref.Tail[2]
		if name.Ident == nil || (!which.Min && !which.Max) {
			return nil
		}

		bk := BlockNutrients
		if head.Ingredients {
			bk = BlockIngredients
		} else if !head.Nutrients {
			return nil
		}

		w := BoundMin
		if which.Max {
			w = BoundMax
		}

		return &CompositionRef{Span: span, Kind: CompSingleBound, Path: ref.Head, BlockKind: bk, Names: []string{*name.Ident}, Which: w}

	default:
		return nil
	}
}
