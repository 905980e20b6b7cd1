package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports user input that failed a range or format check.
// It is always recoverable: the conversation re-prompts within the same
// state and the accumulator stays untouched.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidation builds a ValidationError for the given field.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Code classifies the error for handler summaries.
func (e *ValidationError) Code() string { return "validation" }

// NotFoundError reports a missing record of some kind. Callers treat it as
// a no-op condition, not a failure.
type NotFoundError struct {
	Kind string
}

func (e *NotFoundError) Error() string { return "no " + e.Kind + " found" }

// Code classifies the error for handler summaries.
func (e *NotFoundError) Code() string { return "not_found" }

// Sentinel not-found conditions, comparable with errors.Is.
var (
	ErrProfileNotFound = &NotFoundError{Kind: "profile"}
	ErrNoEntries       = &NotFoundError{Kind: "entries"}
)

// StorageError wraps a persistence failure. The core never retries it;
// the session is reset and the cause travels upward for logging.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Code classifies the error for handler summaries.
func (e *StorageError) Code() string { return "storage" }

// WrapStorage wraps err as a StorageError unless it is nil, already a
// StorageError, or one of the domain's recoverable errors.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsNotFound reports whether err is any NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
