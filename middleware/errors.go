package middleware

import (
	"net/http"

	"github.com/pb33f/libopenapi-validator/errors"
)

// ValidationError wraps libopenapi-validator errors with HTTP semantics.
type ValidationError struct {
	StatusCode int
	Message    string
	Errors     []*errors.ValidationError
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Detail is the first validator message, which is usually the useful one.
func (e *ValidationError) Detail() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	first := e.Errors[0]
	if first.Reason != "" {
		return first.Message + ": " + first.Reason
	}
	return first.Message
}

// AuthError represents authentication failures.
type AuthError struct {
	StatusCode int
	Scheme     string
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// IsUnauthorized returns true if error is 401 (missing/invalid credentials).
func (e *AuthError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// NewUnauthorizedError creates a 401 error.
func NewUnauthorizedError(scheme, message string) *AuthError {
	return &AuthError{
		StatusCode: http.StatusUnauthorized,
		Scheme:     scheme,
		Message:    message,
	}
}
