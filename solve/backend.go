// Package solve hands a built lp.Problem to a pluggable linear-programming
// backend and turns the raw result into a formulated Solution: status,
// primal/dual values, derived report fields, and violations.
package solve

import (
	"errors"
	"fmt"

	"github.com/rlch/formulang/lp"
)

// ErrUnknownBackend is returned by NewBackend for an unregistered name.
var ErrUnknownBackend = errors.New("solve: unknown backend")

// Backend solves one lp.Problem and reports its raw result. Solvers that
// can't express a concept (e.g. dual values) leave the corresponding
// Solution fields empty rather than erroring.
type Backend interface {
	// Name identifies the backend (e.g. "gonum").
	Name() string

	// Solve returns the problem's raw optimal solution, or an error if the
	// backend itself failed (not to be confused with an infeasible LP,
	// which is a normal Solve result with Status set to StatusInfeasible).
	Solve(p *lp.Problem) (*RawResult, error)
}

// RawResult is what a Backend returns before Solver layers on report
// derivation and infeasible-relaxation retry.
type RawResult struct {
	Status    Status
	ObjectiveValue float64
	Values    map[string]float64 // variable name -> primal value
	Duals     map[int]float64    // row index -> shadow price, if the backend supports duals
	Message   string             // set when Status is StatusError
}

// Status classifies a solve outcome.
type Status int

// Solve statuses.
const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "error"
	}
}

// BackendFactory creates a Backend from its configuration.
type BackendFactory func() Backend

var backends = make(map[string]BackendFactory)

// RegisterBackend registers a backend factory by name. Backends call this
// from an init() function.
func RegisterBackend(name string, factory BackendFactory) {
	backends[name] = factory
}

// NewBackend creates a backend instance by name.
func NewBackend(name string) (Backend, error) { //nolint:ireturn
	factory, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}

	return factory(), nil
}

// RegisteredBackends returns the names of all registered backends.
func RegisteredBackends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}

	return names
}

func init() {
	RegisterBackend("gonum", func() Backend { return &GonumBackend{} })
}
