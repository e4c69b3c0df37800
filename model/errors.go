package model

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by stores when no document matches.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when an identity with the same email exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateLicense is returned when a doctor license number is already taken.
	ErrDuplicateLicense = errors.New("license number already registered")
	// ErrDuplicatePatient is returned when an identity already owns a chart.
	ErrDuplicatePatient = errors.New("patient chart already exists")
	// ErrSecretNotFound is returned when a one-time secret hash has no live match.
	ErrSecretNotFound = errors.New("secret not found or expired")
	// ErrConflict is returned when a save races another write to the same
	// document.
	ErrConflict = errors.New("document was modified concurrently")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError lists every violated input rule.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a *ValidationError from messages, or nil when empty.
func Invalid(fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
