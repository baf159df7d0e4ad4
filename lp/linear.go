package lp

import (
	"errors"

	"github.com/rlch/formulang"
)

// Linear is a linear combination of variables plus a constant term:
// Σ coeffs[v]·v + const.
type Linear struct {
	Coeffs map[string]float64
	Const  float64
}

// ErrNonLinear is returned when an expression multiplies or divides two
// non-constant terms together - outside the linear fragment this builder
// supports.
var ErrNonLinear = errors.New("lp: non-linear expression")

func zero() Linear { return Linear{Coeffs: make(map[string]float64)} }

func constant(v float64) Linear { return Linear{Coeffs: make(map[string]float64), Const: v} }

func (l Linear) isConstant() bool { return len(l.Coeffs) == 0 }

func add(a, b Linear) Linear {
	out := zero()
	out.Const = a.Const + b.Const

	for k, v := range a.Coeffs {
		out.Coeffs[k] += v
	}

	for k, v := range b.Coeffs {
		out.Coeffs[k] += v
	}

	return out
}

func sub(a, b Linear) Linear { return add(a, scale(b, -1)) }

func scale(a Linear, f float64) Linear {
	out := zero()
	out.Const = a.Const * f

	for k, v := range a.Coeffs {
		out.Coeffs[k] = v * f
	}

	return out
}

func mul(a, b Linear) (Linear, error) {
	switch {
	case a.isConstant():
		return scale(b, a.Const), nil
	case b.isConstant():
		return scale(a, b.Const), nil
	default:
		return Linear{}, ErrNonLinear
	}
}

func div(a, b Linear) (Linear, error) {
	if !b.isConstant() || b.Const == 0 {
		return Linear{}, ErrNonLinear
	}

	return scale(a, 1/b.Const), nil
}

// NameResolver maps a bare reference name to the linear combination of
// LP variables it denotes: identity for an ingredient reference, or the
// nutrient-content vector Σ_i content(i, n)·x_i for a nutrient reference.
type NameResolver func(name string) (Linear, bool)

// Eval evaluates e against resolve, following standard precedence
// (`* /` before `+ -`). Returns ErrNonLinear if e multiplies or divides two
// non-constant subexpressions - everything this builder can linearize
// short of the ratio special case handled separately in builder.go.
func Eval(e *formulang.Expr, resolve NameResolver) (Linear, error) {
	acc, err := evalTerm(e.First, resolve)
	if err != nil {
		return Linear{}, err
	}

	for _, op := range e.Rest {
		t, err := evalTerm(op.Term, resolve)
		if err != nil {
			return Linear{}, err
		}

		if op.Op == "+" {
			acc = add(acc, t)
		} else {
			acc = sub(acc, t)
		}
	}

	return acc, nil
}

func evalTerm(t *formulang.Term, resolve NameResolver) (Linear, error) {
	acc, err := evalFactor(t.First, resolve)
	if err != nil {
		return Linear{}, err
	}

	for _, op := range t.Rest {
		f, err := evalFactor(op.Factor, resolve)
		if err != nil {
			return Linear{}, err
		}

		if op.Op == "*" {
			acc, err = mul(acc, f)
		} else {
			acc, err = div(acc, f)
		}

		if err != nil {
			return Linear{}, err
		}
	}

	return acc, nil
}

func evalFactor(f *formulang.Factor, resolve NameResolver) (Linear, error) {
	switch {
	case f.Number != nil:
		return constant(*f.Number), nil
	case f.Percent != nil:
		return constant(*f.Percent), nil
	case f.Ref != nil:
		if len(f.Ref.Tail) != 0 {
			return Linear{}, ErrNonLinear
		}

		l, ok := resolve(f.Ref.Head)
		if !ok {
			return Linear{}, ErrNonLinear
		}

		return l, nil
	case f.Paren != nil:
		return Eval(f.Paren, resolve)
	default:
		return Linear{}, ErrNonLinear
	}
}
