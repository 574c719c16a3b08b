package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultClaudeURL   = "https://api.anthropic.com/v1"
	DefaultClaudeModel = "claude-sonnet-4-20250514"
	anthropicVersion   = "2023-06-01"
	claudeMaxTokens    = 4000
)

type Claude struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewClaude(apiKey string, opts ...Option) *Claude {
	o := options{baseURL: DefaultClaudeURL, model: DefaultClaudeModel}
	o.apply(opts)
	return &Claude{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(o.baseURL, "/"),
		model:   o.model,
		client:  o.httpClient(),
	}
}

func (c *Claude) Model() string {
	return c.model
}

// Chat sends one message. The Messages API has no JSON mode, so r.JSON only
// relies on the system prompt.
func (c *Claude) Chat(ctx context.Context, r Request) (string, error) {
	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = claudeMaxTokens
	}
	body := map[string]any{
		"model": c.model,
		"messages": []map[string]string{{
			"role":    "user",
			"content": r.Prompt,
		}},
		"max_tokens":  maxTokens,
		"temperature": r.Temperature,
	}
	if r.System != "" {
		body["system"] = r.System
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Provider: ProviderClaude, StatusCode: resp.StatusCode, Body: string(respBytes)}
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}
	if out.Error.Message != "" {
		return "", fmt.Errorf("Claude API error: %s", out.Error.Message)
	}
	for _, block := range out.Content {
		if block.Text != "" {
			return block.Text, nil
		}
	}
	return "", ErrEmptyResponse
}
