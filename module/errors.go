// Package module loads Formulang source files and resolves their import
// statements into a module graph, detecting cycles and alias collisions
// along the way.
package module

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for module operations.
var (
	// ErrModuleNotFound is returned when an import path cannot be resolved to a file.
	ErrModuleNotFound = errors.New("module: not found")

	// ErrCyclicImport is returned when a cycle is detected in the import graph.
	ErrCyclicImport = errors.New("module: cyclic import")

	// ErrParseError is returned when a module's source fails to parse.
	ErrParseError = errors.New("module: parse error")

	// ErrAliasCollision is returned when two distinct imports bind the same alias.
	ErrAliasCollision = errors.New("module: alias already bound to a different module")
)

// CycleError reports the full chain of an import cycle.
type CycleError struct {
	// Path is the cycle: [A, B, C, A] means A imports B, B imports C, C imports A.
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCyclicImport, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCyclicImport }

// LoadError reports a failed module load, including the importer for
// context.
type LoadError struct {
	Path         string
	ImportedFrom string
	Cause        error
}

func (e *LoadError) Error() string {
	if e.ImportedFrom != "" {
		return fmt.Sprintf("failed to load %q (imported from %s): %v", e.Path, e.ImportedFrom, e.Cause)
	}

	return fmt.Sprintf("failed to load %q: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// ParseFailureError wraps the raw parser error for a module that failed to
// parse, keeping the underlying participle error in Err for diagnostic-code
// classification and position extraction (errors.As to *ParseFailureError,
// then read Err; Unwrap does not expose it), while errors.Is(err,
// ErrParseError) still matches through Unwrap.
type ParseFailureError struct {
	Err error
}

func (e *ParseFailureError) Error() string { return fmt.Sprintf("%v: %v", ErrParseError, e.Err) }

func (e *ParseFailureError) Unwrap() error { return ErrParseError }

// AliasError reports two imports binding the same alias to different modules.
type AliasError struct {
	Alias   string
	First   string
	Second  string
}

func (e *AliasError) Error() string {
	return fmt.Sprintf("%v: %q bound to both %s and %s", ErrAliasCollision, e.Alias, e.First, e.Second)
}

func (e *AliasError) Unwrap() error { return ErrAliasCollision }
