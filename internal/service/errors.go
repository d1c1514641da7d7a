package service

import "errors"

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// inactive accounts; callers must not learn which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSessionInvalid     = errors.New("invalid or expired session")
	ErrNotFound           = errors.New("not found")
)

// ValidationError carries the specific constraint that was violated;
// unlike auth failures, validation messages are caller-visible.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
