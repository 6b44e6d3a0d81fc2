package domain

import "fmt"

// The error taxonomy every layer above the repositories speaks.
// Services translate repository sentinels into these; the API layer maps
// them onto HTTP status codes with errors.As.

// ValidationError reports the first field that failed entity validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on field %q: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports that a referenced identifier did not resolve.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError reports a business invariant that would be violated
// (duplicate active contract, forbidden state transition, double
// association, level incompatibility, ...).
type ConflictError struct {
	Rule string
}

func (e *ConflictError) Error() string {
	return e.Rule
}

// NewConflictError builds a ConflictError describing the violated rule.
func NewConflictError(format string, args ...any) error {
	return &ConflictError{Rule: fmt.Sprintf(format, args...)}
}

// DependencyError reports that a related entity required by a guard or a
// cascade could not be loaded. Fatal for the current operation.
type DependencyError struct {
	Entity string
	Err    error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("failed to load required %s: %v", e.Entity, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// CompensationError reports a failed best-effort cleanup step. It is
// carried inside cascade results and logged, never returned as the
// failure of the parent operation.
type CompensationError struct {
	Op  string
	Err error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation %s failed: %v", e.Op, e.Err)
}

func (e *CompensationError) Unwrap() error { return e.Err }
