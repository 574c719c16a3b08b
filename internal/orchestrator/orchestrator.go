// Package orchestrator runs each capability through the model first and
// falls back to the rule-based analyzers, tagging every result with the
// path that produced it.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/kolah/codepilot/internal/ai"
	"github.com/kolah/codepilot/internal/analyzer"
	"github.com/kolah/codepilot/internal/model"
	"github.com/kolah/codepilot/internal/openapi"
	"github.com/rs/zerolog"
)

const (
	NoteAnalysisUnavailable   = "AI analysis unavailable"
	NoteGenerationUnavailable = "AI generation unavailable"
	NoteAuthUnavailable       = "AI analysis unavailable for auth validation"
)

// Model is the model-backed side of every capability. *ai.Wrapper
// implements it.
type Model interface {
	AnalyzeController(ctx context.Context, code string) ai.Result[model.AIAnalysis]
	GenerateOpenAPI(ctx context.Context, code string) ai.Result[model.Fragment]
	ValidateAuthFlow(ctx context.Context, code string) ai.Result[model.AuthReview]
}

type Option func(*Orchestrator)

// WithClock replaces time.Now for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

type Orchestrator struct {
	model Model
	log   zerolog.Logger
	now   func() time.Time

	analyze func(string) (*model.AnalysisReport, error)
	infer   func(string) (*model.Fragment, error)
}

func New(m Model, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		model:   m,
		log:     log.With().Str("component", "orchestrator").Logger(),
		now:     time.Now,
		analyze: analyzer.AnalyzeController,
		infer:   openapi.Infer,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze reviews a controller snippet.
func (o *Orchestrator) Analyze(ctx context.Context, code string) (*model.AnalysisEnvelope, error) {
	res := ask(func() ai.Result[model.AIAnalysis] { return o.model.AnalyzeController(ctx, code) })
	if res.Success {
		return &model.AnalysisEnvelope{Source: model.SourceAI, Timestamp: o.now(), AI: &res.Data}, nil
	}
	o.fallingBack("analyze", res.Err)

	report, err := Guard("controller", func() (*model.AnalysisReport, error) { return o.analyze(code) })
	if err != nil {
		return nil, err
	}
	return &model.AnalysisEnvelope{
		Source:    model.SourceFallback,
		Note:      NoteAnalysisUnavailable,
		Timestamp: o.now(),
		Fallback:  report,
	}, nil
}

// OpenAPI derives an OpenAPI fragment for the route in code.
func (o *Orchestrator) OpenAPI(ctx context.Context, code string) (*model.OpenAPIEnvelope, error) {
	res := ask(func() ai.Result[model.Fragment] { return o.model.GenerateOpenAPI(ctx, code) })
	if res.Success {
		return &model.OpenAPIEnvelope{Source: model.SourceAI, Timestamp: o.now(), AI: &res.Data}, nil
	}
	o.fallingBack("openapi", res.Err)

	frag, err := Guard("openapi", func() (*model.Fragment, error) { return o.infer(code) })
	if err != nil {
		return nil, err
	}
	return &model.OpenAPIEnvelope{
		Source:    model.SourceFallback,
		Note:      NoteGenerationUnavailable,
		Timestamp: o.now(),
		Fallback:  frag,
	}, nil
}

// Auth reviews an authentication flow. There is no rule-based review of
// free-form auth code, so a failed model call yields a fixed placeholder.
func (o *Orchestrator) Auth(ctx context.Context, code string) (*model.AuthEnvelope, error) {
	res := ask(func() ai.Result[model.AuthReview] { return o.model.ValidateAuthFlow(ctx, code) })
	if res.Success {
		return &model.AuthEnvelope{Source: model.SourceAI, Timestamp: o.now(), AI: &res.Data}, nil
	}
	o.fallingBack("auth", res.Err)

	return &model.AuthEnvelope{
		Source:    model.SourceRuleOnly,
		Note:      NoteAuthUnavailable,
		Timestamp: o.now(),
		Fallback: &model.AuthReview{
			Vulnerabilities: []string{ai.ErrDisabled.Error()},
			Recommendations: []string{"Set OPENAI_API_KEY environment variable"},
			RiskLevel:       model.RiskUnknown,
		},
	}, nil
}

func (o *Orchestrator) fallingBack(capability, reason string) {
	o.log.Debug().Str("capability", capability).Str("reason", reason).Msg("using rule-based result")
}

// ask calls the model, treating a panic as a failed call.
func ask[T any](fn func() ai.Result[T]) (res ai.Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = ai.Result[T]{Err: fmt.Sprintf("model call panicked: %v", r)}
		}
	}()
	return fn()
}

// Guard runs fn, turning a panic into a *FaultError for op.
func Guard[T any](op string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out, err = zero, &FaultError{Op: op, Value: r}
		}
	}()
	return fn()
}
