package store

import (
	"fmt"
	"net/http"
)

// Error is a persistence error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Index   string // Unique index that was violated, if any
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same status code, so a conflict on a
// specific index still satisfies errors.Is(err, ErrAlreadyExists).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Index:   e.Index,
		Err:     err,
	}
}

// IndexConflict reports a unique index violation on index.
func IndexConflict(index string) *Error {
	return &Error{
		Code:    http.StatusConflict,
		Message: index + " already exists",
		Index:   index,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	// ErrConflictRetriesExhausted is returned when an update kept losing
	// to concurrent writers and ran out of attempts.
	ErrConflictRetriesExhausted = &Error{
		Code:    http.StatusServiceUnavailable,
		Message: "too many concurrent updates",
	}
)
