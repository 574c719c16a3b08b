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
	DefaultOpenAIURL   = "https://api.openai.com/v1"
	DefaultOpenAIModel = "gpt-4-turbo-preview"
)

type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewOpenAI(apiKey string, opts ...Option) *OpenAI {
	o := options{baseURL: DefaultOpenAIURL, model: DefaultOpenAIModel}
	o.apply(opts)
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(o.baseURL, "/"),
		model:   o.model,
		client:  o.httpClient(),
	}
}

func (c *OpenAI) Model() string {
	return c.model
}

func (c *OpenAI) Chat(ctx context.Context, r Request) (string, error) {
	messages := []map[string]string{}
	if r.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": r.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": r.Prompt})

	body := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": r.Temperature,
	}
	if r.MaxTokens > 0 {
		body["max_tokens"] = r.MaxTokens
	}
	if r.JSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		return "", &APIError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Body: string(respBytes)}
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return "", fmt.Errorf("decoding OpenAI response: %w", err)
	}
	if out.Error.Message != "" {
		return "", fmt.Errorf("OpenAI API error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}
