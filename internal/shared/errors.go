package shared

import "errors"

var (
	// ErrNotFound indicates resource not found. Owner-scoped lookups also
	// report it for rows that exist but belong to someone else.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique key collision in storage.
	ErrDuplicate = errors.New("already exists")
	// ErrValidation indicates malformed or missing client input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized indicates a missing or rejected credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller lacking access.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Error pairs a client-facing message with one of the sentinels above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap lets errors.Is match the sentinel.
func (e *Error) Unwrap() error { return e.Kind }

// Invalid builds a validation error.
func Invalid(message string) error {
	return &Error{Kind: ErrValidation, Message: message}
}

// Conflict builds a duplicate error.
func Conflict(message string) error {
	return &Error{Kind: ErrDuplicate, Message: message}
}

// NotFound builds a not-found error.
func NotFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}
