package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an issue or user reference does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the acting user lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError rejects a request with a field-level reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
