package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// SecurityHandler validates credentials for a specific security scheme.
type SecurityHandler interface {
	Handle(r *http.Request, scopes []string) (*SecurityContext, error)
}

// APIKeyHandler validates API key authentication.
type APIKeyHandler func(ctx context.Context, key string) (*APIKeyAuth, error)

// APIKeyConfig wraps an APIKeyHandler with location info.
type APIKeyConfig struct {
	Handler  APIKeyHandler
	Location string
	Name     string
}

// Handle implements SecurityHandler.
func (c APIKeyConfig) Handle(r *http.Request, _ []string) (*SecurityContext, error) {
	key := ExtractAPIKey(r, c.Location, c.Name)
	if key == "" {
		return nil, NewUnauthorizedError("apiKey", "missing API key")
	}
	auth, err := c.Handler(r.Context(), key)
	if err != nil {
		return nil, err
	}
	auth.Location = c.Location
	auth.Name = c.Name
	return &SecurityContext{APIKey: auth}, nil
}

// StaticKeys accepts any of keys, compared in constant time. The returned
// auth carries a short fingerprint of the key rather than the key itself.
func StaticKeys(keys []string) APIKeyHandler {
	return func(_ context.Context, key string) (*APIKeyAuth, error) {
		match := 0
		for _, k := range keys {
			match |= subtle.ConstantTimeCompare([]byte(k), []byte(key))
		}
		if match != 1 {
			return nil, NewUnauthorizedError("apiKey", "invalid API key")
		}
		sum := sha256.Sum256([]byte(key))
		return &APIKeyAuth{Fingerprint: hex.EncodeToString(sum[:4])}, nil
	}
}

// SecurityRegistry holds handlers for named security schemes.
type SecurityRegistry struct {
	handlers map[string]SecurityHandler
}

// NewSecurityRegistry creates a new security registry.
func NewSecurityRegistry() *SecurityRegistry {
	return &SecurityRegistry{handlers: make(map[string]SecurityHandler)}
}

// Register adds a handler for a named security scheme.
func (r *SecurityRegistry) Register(name string, handler SecurityHandler) {
	r.handlers[name] = handler
}

// RegisterAPIKey registers an API key handler.
func (r *SecurityRegistry) RegisterAPIKey(name string, handler APIKeyHandler, location, paramName string) {
	r.handlers[name] = APIKeyConfig{Handler: handler, Location: location, Name: paramName}
}

// Get returns the handler for a scheme, or nil if not registered.
func (r *SecurityRegistry) Get(name string) SecurityHandler {
	return r.handlers[name]
}

// ExtractAPIKey extracts an API key from the specified location.
func ExtractAPIKey(r *http.Request, location, name string) string {
	switch location {
	case "header":
		return r.Header.Get(name)
	case "query":
		return r.URL.Query().Get(name)
	case "cookie":
		if c, err := r.Cookie(name); err == nil {
			return c.Value
		}
	}
	return ""
}

