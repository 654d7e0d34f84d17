// Package model defines the domain types shared by the conflict detectors,
// the refresh lifecycle and the persistence layer.  Types here carry no
// behaviour beyond validation and pure time arithmetic; anything that talks
// to the database lives in the repository package.
package model

// ValidationError indicates malformed caller input: a bad interval, a blank
// required field, a missing entity reference.  It is always recoverable by
// correcting the input and handlers surface the message verbatim as a 400.
type ValidationError struct {
	Message string
}

// NewValidationError builds a ValidationError with the given message.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}
