package domain

import (
	"errors"
	"fmt"
)

// ErrNoDocument is returned by a DocumentStore whose slot has never been written.
var ErrNoDocument = errors.New("aggregate document not found")

// ErrInvalidCredentials is returned when a login does not match the stored credentials.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports a missing selection or an empty required field. The
// operation is rejected and state is left unchanged.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// FormatError reports a malformed or incompatible aggregate document.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid aggregate format: %s: %v", e.Reason, e.Err)
	}
	return "invalid aggregate format: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// NotFoundError reports an edit or delete against an unknown id.
type NotFoundError struct {
	Entity EntityType
	ID     ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsFormat reports whether err carries a FormatError.
func IsFormat(err error) bool {
	var target *FormatError
	return errors.As(err, &target)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
