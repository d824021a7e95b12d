package frame

import (
	"errors"
	"fmt"
)

// Error represents an error detected while building the view graph.
//
// All errors are raised synchronously by the offending operation. Nothing in
// the graph is mutated destructively, so a caller that receives an Error
// simply abandons the handles it was building.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Name is the column, alias or function name involved, if any.
	Name string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes builder errors.
type ErrorCode string

const (
	// ErrCodeTermKind indicates an operand is not a literal, View, Predicate or Func.
	ErrCodeTermKind ErrorCode = "TERM_KIND"

	// ErrCodeInvalidFilterShape indicates a filter argument cannot act as a predicate.
	ErrCodeInvalidFilterShape ErrorCode = "INVALID_FILTER_SHAPE"

	// ErrCodeColumnRedefinition indicates an attempt to redefine a resolved field.
	ErrCodeColumnRedefinition ErrorCode = "COLUMN_REDEFINITION"

	// ErrCodeArityMismatch indicates a function was given the wrong number of arguments.
	ErrCodeArityMismatch ErrorCode = "ARITY_MISMATCH"

	// ErrCodeUnknownSubstitution indicates a dangling arena reference. It is
	// an internal invariant violation and is raised by panicking.
	ErrCodeUnknownSubstitution ErrorCode = "UNKNOWN_SUBSTITUTION"

	// ErrCodeNotCallable indicates a call on a view that is not a field access.
	ErrCodeNotCallable ErrorCode = "NOT_CALLABLE"

	// ErrCodeDepthExceeded indicates a lineage deeper than the configured limit.
	ErrCodeDepthExceeded ErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeInvalidName indicates an empty column or alias name.
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (name=%s)", e.Code, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasCode reports whether err is, or wraps, an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// IsTermKindError returns true if err is a term kind error.
func IsTermKindError(err error) bool { return HasCode(err, ErrCodeTermKind) }

// IsInvalidFilterShape returns true if err is an invalid filter shape error.
func IsInvalidFilterShape(err error) bool { return HasCode(err, ErrCodeInvalidFilterShape) }

// IsColumnRedefinition returns true if err is a column redefinition error.
func IsColumnRedefinition(err error) bool { return HasCode(err, ErrCodeColumnRedefinition) }

// IsArityMismatch returns true if err is an arity mismatch error.
func IsArityMismatch(err error) bool { return HasCode(err, ErrCodeArityMismatch) }

func termKindError(v any, context string) *Error {
	return &Error{
		Code:    ErrCodeTermKind,
		Message: fmt.Sprintf("cannot use a term of type %T in %s", v, context),
	}
}

func filterShapeError(message string) *Error {
	return &Error{Code: ErrCodeInvalidFilterShape, Message: message}
}

// NewArityError creates an Error for a function invoked with the wrong
// number of arguments.
func NewArityError(name string, want, got int) *Error {
	return &Error{
		Code:    ErrCodeArityMismatch,
		Message: fmt.Sprintf("function takes %d argument(s), %d given", want, got),
		Name:    name,
		Details: map[string]string{
			"want": fmt.Sprintf("%d", want),
			"got":  fmt.Sprintf("%d", got),
		},
	}
}

func depthError(limit int) *Error {
	return &Error{
		Code:    ErrCodeDepthExceeded,
		Message: fmt.Sprintf("view lineage deeper than %d", limit),
		Details: map[string]string{"max_depth": fmt.Sprintf("%d", limit)},
	}
}

// unknownSubstitution panics: a reference that the arena never handed out
// means the graph itself is corrupt.
func unknownSubstitution(what string, id uint32) {
	panic(&Error{
		Code:    ErrCodeUnknownSubstitution,
		Message: fmt.Sprintf("no %s with id %d in this graph", what, id),
	})
}
