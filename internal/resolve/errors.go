package resolve

import (
	"errors"
	"fmt"
	"strings"
)

// ResolveError represents a fatal failure of one resolution pass.
//
// Only circular dependencies are fatal. Syntax errors, missing mods and
// conflicts are collected on the Report and never surface here. A
// ResolveError aborts exactly one pass; the resolver stays usable for the
// next call.
type ResolveError struct {
	// Code identifies the error category.
	Code ResolveErrorCode

	// Message is a human-readable description.
	Message string

	// Cycles lists the circular dependencies, shortest first.
	Cycles []Cycle
}

// ResolveErrorCode categorizes resolution errors.
type ResolveErrorCode string

const (
	// ErrCodeCircularDependency indicates the constraint graph contains at
	// least one cycle, so no total order satisfies the rule set.
	ErrCodeCircularDependency ResolveErrorCode = "CIRCULAR_DEPENDENCY"
)

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if len(e.Cycles) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, strings.Join(e.Cycles[0].Path, " -> "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCircular reports whether err is a circular-dependency failure.
// Uses errors.As to handle wrapped errors.
func IsCircular(err error) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCircularDependency
	}
	return false
}

// NewCircularError creates a ResolveError for a cyclic constraint graph.
func NewCircularError(cycles []Cycle) *ResolveError {
	msg := "constraint graph is cyclic"
	if n := len(cycles); n == 1 {
		msg = "constraint graph contains a cycle"
	} else if n > 1 {
		msg = fmt.Sprintf("constraint graph contains %d cycles", n)
	}
	return &ResolveError{
		Code:    ErrCodeCircularDependency,
		Message: msg,
		Cycles:  cycles,
	}
}
