package cli

import (
	"fmt"

	"github.com/kolah/codepilot/internal/ai"
	"github.com/kolah/codepilot/internal/config"
	"github.com/kolah/codepilot/internal/llm"
	"github.com/kolah/codepilot/internal/orchestrator"
	"github.com/kolah/codepilot/internal/prompts"
	"github.com/rs/zerolog"
)

// runtime holds the components shared by serve and analyze.
type runtime struct {
	cfg  *config.Config
	log  zerolog.Logger
	ai   *ai.Wrapper
	orch *orchestrator.Orchestrator
}

func newRuntime(cfg *config.Config, log zerolog.Logger) (*runtime, error) {
	engine, err := prompts.New(cfg.Prompts.Dir)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}

	client, err := newClient(cfg.AI)
	if err != nil {
		return nil, err
	}
	if cfg.AI.Enabled && client == nil {
		log.Warn().Str("provider", cfg.AI.Provider).Msg("AI enabled but no API key configured, using rule-based analysis")
	}

	wrapper := ai.New(client, engine, ai.Config{
		Enabled:     cfg.AI.Enabled,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Redact:      cfg.AI.Redact,
	}, log)

	return &runtime{
		cfg:  cfg,
		log:  log,
		ai:   wrapper,
		orch: orchestrator.New(wrapper, log),
	}, nil
}

// newClient returns nil without error when the model path is inactive.
func newClient(cfg config.AIConfig) (llm.Client, error) {
	if !cfg.Active() {
		return nil, nil
	}

	provider, err := llm.ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	client, err := llm.New(llm.Config{
		Provider: provider,
		APIKey:   cfg.APIKey(),
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", provider, err)
	}
	return client, nil
}
