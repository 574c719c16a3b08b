// Package server exposes the analyzers and the orchestrator over HTTP.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kolah/codepilot/internal/config"
	"github.com/kolah/codepilot/internal/orchestrator"
	"github.com/kolah/codepilot/middleware"
	"github.com/rs/zerolog"
)

// Spec is the service's own OpenAPI document.
//
//go:embed openapi.yaml
var Spec []byte

const (
	ServiceName  = "codepilot"
	APIKeyHeader = "X-API-Key"
	apiKeyScheme = "apiKeyAuth"
)

// Features lists the capabilities reported by /health.
var Features = []string{
	"openapi-generator",
	"controller-analyzer",
	"auth-validator",
	"ai-analysis",
}

type Options struct {
	Config       config.ServerConfig
	Orchestrator *orchestrator.Orchestrator
	Logger       zerolog.Logger
	Version      string
	AIEnabled    bool
}

type Server struct {
	cfg     config.ServerConfig
	orch    *orchestrator.Orchestrator
	log     zerolog.Logger
	version string
	ai      bool
	router  chi.Router
}

func New(opts Options) (*Server, error) {
	s := &Server{
		cfg:     opts.Config,
		orch:    opts.Orchestrator,
		log:     opts.Logger.With().Str("component", "server").Logger(),
		version: opts.Version,
		ai:      opts.AIEnabled,
	}

	validation, err := s.validationMiddleware()
	if err != nil {
		return nil, fmt.Errorf("building request validation: %w", err)
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)

	r.Get("/health", s.health)
	r.Get("/demo", s.demo)
	r.Get("/docs/openapi.yaml", s.docs)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limitBody)
		r.Use(validation.Handler)

		r.Post("/generate/openapi", s.generateOpenAPI)
		r.Post("/analyze/controller", s.analyzeController)
		r.Post("/validate/auth", s.validateAuth)
		r.Post("/ai/analyze", s.aiAnalyze)
		r.Post("/ai/openapi", s.aiOpenAPI)
		r.Post("/ai/auth", s.aiAuth)
	})

	s.router = r
	return s, nil
}

// validationMiddleware checks /api requests against Spec. The API-key
// requirement is added to the document only when keys are configured.
func (s *Server) validationMiddleware() (*middleware.Middleware, error) {
	spec := Spec
	opts := &middleware.Options{
		ValidateRequest: s.cfg.ValidateRequests,
		ErrorHandler:    s.middlewareError,
	}

	if len(s.cfg.APIKeys) > 0 {
		spec = append(append([]byte{}, Spec...), "\nsecurity:\n  - "+apiKeyScheme+": []\n"...)
		opts.Security = middleware.NewSecurityRegistry()
		opts.Security.RegisterAPIKey(apiKeyScheme, middleware.StaticKeys(s.cfg.APIKeys), "header", APIKeyHeader)
	}

	return middleware.New(spec, opts)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().
			Str("addr", ln.Addr().String()).
			Bool("ai", s.ai).
			Bool("api_keys", len(s.cfg.APIKeys) > 0).
			Msg("starting server")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info().Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
