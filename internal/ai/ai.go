// Package ai asks a hosted model for schema-shaped JSON and never lets a
// failure escape as anything but an unsuccessful Result.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kolah/codepilot/internal/llm"
	"github.com/kolah/codepilot/internal/model"
	"github.com/kolah/codepilot/internal/prompts"
	"github.com/kolah/codepilot/internal/redact"
	"github.com/kolah/codepilot/internal/schema"
	"github.com/rs/zerolog"
)

const (
	SystemPrompt       = "You are a backend code analyzer. Return ONLY valid JSON."
	DefaultTemperature = 0.1
)

var ErrDisabled = errors.New("AI service not available")

type Config struct {
	Enabled     bool
	Temperature float64
	MaxTokens   int
	// Redact masks credentials in code before it is sent.
	Redact bool
}

// Result is the outcome of one invocation. Err is set iff !Success.
type Result[T any] struct {
	Success bool
	Data    T
	Err     string
}

type Wrapper struct {
	client  llm.Client
	prompts prompts.Engine
	cfg     Config
	log     zerolog.Logger
	enabled bool
}

// New returns a wrapper that is enabled only when cfg.Enabled is set and a
// client is present. A nil client is how a missing credential shows up.
func New(client llm.Client, engine prompts.Engine, cfg Config, log zerolog.Logger) *Wrapper {
	w := &Wrapper{
		client:  client,
		prompts: engine,
		cfg:     cfg,
		log:     log.With().Str("component", "ai").Logger(),
		enabled: cfg.Enabled && client != nil && engine != nil,
	}
	if w.enabled {
		w.log.Info().Str("model", client.Model()).Msg("AI integration enabled")
	} else {
		w.log.Info().Msg("AI integration disabled")
	}
	return w
}

func (w *Wrapper) Enabled() bool {
	return w != nil && w.enabled
}

// Invoke renders the named prompt around code, asks the model once and
// validates the reply against shape before decoding it into T.
func Invoke[T any](ctx context.Context, w *Wrapper, code string, shape *schema.Shape, prompt string) (res Result[T]) {
	if !w.Enabled() {
		return Result[T]{Err: ErrDisabled.Error()}
	}

	start := time.Now()
	log := w.log.With().Str("prompt", prompt).Str("shape", shape.Name()).Logger()

	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Err: fmt.Sprintf("AI invocation panicked: %v", r)}
		}
		ev := log.Debug()
		if !res.Success {
			ev = log.Warn().Str("error", res.Err)
		}
		ev.Bool("success", res.Success).Dur("elapsed", time.Since(start)).Msg("AI invocation finished")
	}()

	data, err := invoke[T](ctx, w, code, shape, prompt)
	if err != nil {
		return Result[T]{Err: err.Error()}
	}
	return Result[T]{Success: true, Data: data}
}

func invoke[T any](ctx context.Context, w *Wrapper, code string, shape *schema.Shape, prompt string) (T, error) {
	var zero T

	text, err := prompts.Render(w.prompts, prompt, redact.Optional(code, w.cfg.Redact))
	if err != nil {
		return zero, err
	}

	reply, err := w.client.Chat(ctx, llm.Request{
		System:      SystemPrompt,
		Prompt:      text,
		Temperature: w.cfg.Temperature,
		MaxTokens:   w.cfg.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return zero, err
	}

	v, err := schema.Parse(schema.StripFences(reply))
	if err != nil {
		return zero, err
	}
	if err := shape.Check(v); err != nil {
		return zero, err
	}
	if obj, ok := v.(map[string]any); ok {
		v = schema.Sanitize(obj)
	}
	return schema.Decode[T](v)
}

func (w *Wrapper) AnalyzeController(ctx context.Context, code string) Result[model.AIAnalysis] {
	return Invoke[model.AIAnalysis](ctx, w, code, schema.AnalysisShape, prompts.Analysis)
}

func (w *Wrapper) GenerateOpenAPI(ctx context.Context, code string) Result[model.Fragment] {
	return Invoke[model.Fragment](ctx, w, code, schema.OpenAPIShape, prompts.OpenAPI)
}

func (w *Wrapper) ValidateAuthFlow(ctx context.Context, code string) Result[model.AuthReview] {
	return Invoke[model.AuthReview](ctx, w, code, schema.AuthReviewShape, prompts.Auth)
}
