package llm

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
)

const DefaultTimeout = 60 * time.Second

// ParseProvider accepts "anthropic" as an alias for claude.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "openai":
		return ProviderOpenAI, nil
	case "claude", "anthropic":
		return ProviderClaude, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s (supported: openai, claude)", s)
	}
}

func AvailableProviders() []Provider {
	return []Provider{ProviderOpenAI, ProviderClaude}
}

type Option func(*options)

type options struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
}

func (o *options) apply(opts []Option) {
	for _, opt := range opts {
		opt(o)
	}
}

func (o *options) httpClient() *http.Client {
	if o.client != nil {
		return o.client
	}
	timeout := o.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

func WithModel(m string) Option {
	return func(o *options) {
		if m != "" {
			o.model = m
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

type Config struct {
	Provider Provider
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the client for cfg.Provider.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}
	opts := []Option{WithModel(cfg.Model), WithBaseURL(cfg.BaseURL), WithTimeout(cfg.Timeout)}

	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAI(cfg.APIKey, opts...), nil
	case ProviderClaude:
		return NewClaude(cfg.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
