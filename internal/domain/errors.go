package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a crawl configuration fails validation.
	// It is always wrapped by a *ValidationError carrying the field name.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an identifier is not a valid UUID.
	ErrInvalidID = errors.New("invalid id")
)

// ValidationError describes a single invalid field of a submission.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for field wrapping err.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap allows errors.Is(err, ErrValidation) on validation failures.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
