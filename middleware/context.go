package middleware

import (
	"context"
)

type contextKey string

const securityContextKey contextKey = "codepilot:security"

// SecurityContext holds the validated authentication for a request.
type SecurityContext struct {
	APIKey *APIKeyAuth
}

// APIKeyAuth describes an accepted API key.
type APIKeyAuth struct {
	Fingerprint string
	Name        string // Parameter name from spec
	Location    string // header, query, cookie
}

// WithSecurityContext stores security context in the request context.
func WithSecurityContext(ctx context.Context, sec *SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey, sec)
}

// GetSecurityContext retrieves security context from the request context.
func GetSecurityContext(ctx context.Context) *SecurityContext {
	if v := ctx.Value(securityContextKey); v != nil {
		return v.(*SecurityContext)
	}
	return nil
}
