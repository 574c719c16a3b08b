// Package llm holds minimal chat clients for the hosted model providers.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is a single-turn chat exchange.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a JSON-only response where supported.
	JSON bool
}

type Client interface {
	Chat(ctx context.Context, req Request) (string, error)
	Model() string
}

var ErrEmptyResponse = errors.New("no response from model")

// APIError is a non-200 reply from a provider.
type APIError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}
