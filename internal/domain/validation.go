package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is returned when form input is rejected before submission.
var ErrValidation = errors.New("validation failed")

// ValidationResult is the outcome of validating a form.
type ValidationResult struct {
	Valid        bool
	ErrorMessage string
}

// ValidationOK is the result of input that passed every rule.
//
//nolint:gochecknoglobals
var ValidationOK = ValidationResult{Valid: true}

// Invalid returns a failed ValidationResult carrying msg.
func Invalid(msg string) ValidationResult {
	return ValidationResult{Valid: false, ErrorMessage: msg}
}

// Err returns nil for a valid result, or an error wrapping ErrValidation.
func (v ValidationResult) Err() error {
	if v.Valid {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrValidation, v.ErrorMessage)
}
