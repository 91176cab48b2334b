package deadcode

import (
	"errors"
	"fmt"

	"github.com/roach88/deadlint/internal/ir"
)

// InternalError reports IR that contradicts what the type checker
// promised. It halts the current run and is never a user-facing finding.
type InternalError struct {
	// Code identifies the error category.
	Code InternalErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the expression or declaration the violation was found at.
	Node ir.ID

	// Span locates Node when known.
	Span ir.Span
}

// InternalErrorCode categorizes internal errors.
type InternalErrorCode string

const (
	// ErrCodeUnresolvedMethod indicates a method call with no call target.
	ErrCodeUnresolvedMethod InternalErrorCode = "UNRESOLVED_METHOD"
)

// Error implements the error interface.
func (e *InternalError) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("internal error: %s: %s (node=%s at %s)", e.Code, e.Message, e.Node, e.Span)
	}
	return fmt.Sprintf("internal error: %s: %s (node=%s)", e.Code, e.Message, e.Node)
}

// IsInternalError returns true if err is or wraps an *InternalError.
func IsInternalError(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}

// bailout carries an *InternalError out of the recursive visit; Mark
// recovers it and returns it as an ordinary error.
type bailout struct{ err *InternalError }
