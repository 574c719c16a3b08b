package middleware

import (
	"net/http"
)

// ErrorHandler is called when validation or authentication fails.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Options configures middleware behavior. A nil Security skips every
// security requirement of the document.
type Options struct {
	Security        *SecurityRegistry
	ValidateRequest bool
	ErrorHandler    ErrorHandler
}

// DefaultOptions validates requests and enforces security with an empty
// registry.
func DefaultOptions() *Options {
	return &Options{
		Security:        NewSecurityRegistry(),
		ValidateRequest: true,
	}
}
