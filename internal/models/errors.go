package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine. The settlement service maps
// storage-level failures onto these so callers never see driver errors.
var (
	// ErrNotFound signals a referenced user or test does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTestNotAvailable signals the test is missing, still a draft, or
	// already completed. Callers should refresh their view of available tests.
	ErrTestNotAvailable = errors.New("test not available")

	// ErrDuplicateSubmission signals a result already exists for the
	// (test, tester) pair. Not retryable.
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrTransientConflict signals concurrency contention. Retryable; the
	// settlement service retries it a bounded number of times itself.
	ErrTransientConflict = errors.New("transient conflict")
)

// ValidationError reports a malformed or mismatched input, such as a ratings
// map that does not match the category's criterion schema.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
