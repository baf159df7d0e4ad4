package formulang

import "strings"

// propertyAliases maps every recognized spelling of a property name to its
// canonical form (batch_size|batch, description|desc). Formulang keeps the
// lookup table explicit instead of repeating alias checks at every call
// site.
var propertyAliases = map[string]string{
	"batch":       "batch_size",
	"batch_size":  "batch_size",
	"desc":        "description",
	"description": "description",
	"name":        "name",
	"code":        "code",
	"unit":        "unit",
	"cost":        "cost",
}

// canonicalProperty returns the canonical name for a property spelling, or
// "" if the name isn't a recognized property at all (meaning: it's a
// nutrient or ingredient reference, not a property).
func canonicalProperty(name string) string {
	return propertyAliases[strings.ToLower(name)]
}

// findProperty returns the first property in props matching canonical name
// (aliases included), or nil.
func findProperty(props []*Property, canonical string) *Property {
	for _, p := range props {
		if canonicalProperty(p.Name) == canonical {
			return p
		}
	}

	return nil
}

// stringProp returns a property's string value (its PropValue.Str, or the
// literal text of a PropValue.Ident so that `desc ok` behaves like `desc
// "ok"`).
func stringProp(p *Property) (string, bool) {
	if p == nil || p.Value == nil {
		return "", false
	}

	switch {
	case p.Value.Str != nil:
		return *p.Value.Str, true
	case p.Value.Ident != nil:
		return *p.Value.Ident, true
	default:
		return "", false
	}
}

// numberProp returns a property's numeric value, accepting either a bare
// number or a percent literal (percent is returned as its face value; the
// caller decides whether percent is meaningful in context).
func numberProp(p *Property) (float64, bool) {
	if p == nil || p.Value == nil {
		return 0, false
	}

	switch {
	case p.Value.Number != nil:
		return *p.Value.Number, true
	case p.Value.Percent != nil:
		return *p.Value.Percent, true
	default:
		return 0, false
	}
}

// Code returns the nutrient's "code" property, if any.
func (n *NutrientDecl) Code() (string, bool) { return stringProp(findProperty(n.Props, "code")) }

// Description returns the nutrient's "desc"/"description" property, if any.
func (n *NutrientDecl) Description() (string, bool) {
	return stringProp(findProperty(n.Props, "description"))
}

// Unit returns the nutrient's "unit" property, if any.
func (n *NutrientDecl) Unit() (string, bool) { return stringProp(findProperty(n.Props, "unit")) }

// ingredientProperties and ingredientNutrientValues split an IngredientDecl's
// flat Items list into its recognized properties (any name in propertyAliases:
// cost, name, code, desc/description, unit, batch/batch_size) and its nutrient
// content values (every other "name value" pair).
// This is a post-parse classification: the grammar can't tell "cost 150"
// from "protein 8.5" apart, because both are the same "Ident Value" shape;
// only the set of recognized property names does.
func (i *IngredientDecl) ingredientProperties() []*Property {
	var out []*Property

	for _, item := range i.Items {
		if canonicalProperty(item.Name) != "" {
			out = append(out, item)
		}
	}

	return out
}

// NutrientValue is one declared (nutrient, content) pair on an ingredient.
type NutrientValue struct {
	Nutrient string
	Value    float64
	Span     Span
}

// NutrientValues returns the ingredient's declared nutrient content pairs,
// in source order, skipping items that aren't valid (nutrient, number)
// pairs (a string, identifier or percent value); those are dropped without
// a diagnostic.
func (i *IngredientDecl) NutrientValues() []NutrientValue {
	var out []NutrientValue

	for _, item := range i.Items {
		if canonicalProperty(item.Name) != "" {
			continue
		}

		if v, ok := numberProp(item); ok && item.Value.Percent == nil {
			out = append(out, NutrientValue{Nutrient: item.Name, Value: v, Span: item.Span()})
		}
	}

	return out
}

// Cost returns the ingredient's required "cost" property.
func (i *IngredientDecl) Cost() (float64, bool) {
	return numberProp(findProperty(i.ingredientProperties(), "cost"))
}

// Description returns the ingredient's "desc"/"description" property, if any.
func (i *IngredientDecl) Description() (string, bool) {
	return stringProp(findProperty(i.ingredientProperties(), "description"))
}

// properties returns all scalar Property items in a formula's Sections, in
// source order.
func (f *FormulaDecl) properties() []*Property {
	var out []*Property

	for _, s := range f.Sections {
		if s.Property != nil {
			out = append(out, s.Property)
		}
	}

	return out
}

// BatchSize returns the formula's "batch"/"batch_size" property.
func (f *FormulaDecl) BatchSize() (float64, bool) {
	return numberProp(findProperty(f.properties(), "batch_size"))
}

// Description returns the formula's "desc"/"description" property, if any.
func (f *FormulaDecl) Description() (string, bool) {
	return stringProp(findProperty(f.properties(), "description"))
}

// DisplayName returns the formula's "name" display property, if any, falling back
// to the declaration identifier.
func (f *FormulaDecl) DisplayName() string {
	if v, ok := stringProp(findProperty(f.properties(), "name")); ok {
		return v
	}

	return f.Name
}

// NutrientsBlock returns the formula's nutrients block, or nil if absent.
func (f *FormulaDecl) NutrientsBlock() *NutrientsBlock {
	for _, s := range f.Sections {
		if s.Nutrients != nil {
			return s.Nutrients
		}
	}

	return nil
}

// IngredientsBlock returns the formula's ingredients block, or nil if absent.
func (f *FormulaDecl) IngredientsBlock() *IngredientsBlock {
	for _, s := range f.Sections {
		if s.Ingredients != nil {
			return s.Ingredients
		}
	}

	return nil
}
