package rules

import (
	"errors"
	"fmt"
)

// Rule syntax error codes (E200-E299)
const (
	ErrKindUnknown       = "E200" // rule kind not in the closed set
	ErrSubjectMissing    = "E201" // subject mod is required
	ErrObjectMissing     = "E202" // kind requires an object mod
	ErrObjectForbidden   = "E203" // kind does not take an object mod
	ErrSeverityInvalid   = "E204" // severity value not LOW/MEDIUM/HIGH
	ErrSeverityForbidden = "E205" // kind does not take a severity
	ErrPriorityInvalid   = "E206" // priority outside 1..3
	ErrPriorityForbidden = "E207" // kind does not take a priority
	ErrPredicateInvalid  = "E208" // predicate missing type or value
)

// SyntaxError reports one malformed rule record.
//
// Syntax errors are recoverable: batch construction skips the record and
// keeps going, so one bad rule never poisons a rule set.
type SyntaxError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Record  int    `json:"record"`
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("[%s] %s:%d: %s: %s", e.Code, e.File, e.Line, e.Field, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	default:
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
}

// IsSyntaxError reports whether err is (or wraps) a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

func asSyntaxError(err error, target **SyntaxError) bool {
	return errors.As(err, target)
}
