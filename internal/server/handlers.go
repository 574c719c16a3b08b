package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kolah/codepilot/internal/analyzer"
	"github.com/kolah/codepilot/internal/model"
	"github.com/kolah/codepilot/internal/openapi"
	"github.com/kolah/codepilot/internal/orchestrator"
	"github.com/kolah/codepilot/internal/schema"
	"github.com/kolah/codepilot/middleware"
)

// Error labels, one per endpoint family.
const (
	ErrGeneration     = "Generation failed"
	ErrAnalysis       = "Analysis failed"
	ErrAuthValidation = "Auth validation failed"
	ErrAIGeneration   = "OpenAPI generation failed"
	ErrInvalidRequest = "Invalid request"
	ErrUnauthorized   = "Unauthorized"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type authRequest struct {
	Config json.RawMessage `json:"config"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, label, message string) {
	writeJSON(w, status, errorBody{Error: label, Message: message})
}

// statusFor maps analyzer errors onto HTTP statuses: bad input is the
// caller's fault, anything else is ours.
func statusFor(err error) int {
	var se *analyzer.SyntaxError
	var ve *schema.ViolationError
	var pe *schema.ParseError
	switch {
	case errors.As(err, &se), errors.As(err, &ve), errors.As(err, &pe):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, label string, err error) {
	status := statusFor(err)
	ev := s.log.Warn()
	if status >= http.StatusInternalServerError {
		ev = s.log.Error()
	}
	ev.Err(err).Str("request_id", RequestID(r.Context())).Msg(label)
	writeError(w, status, label, err.Error())
}

// decode reads a JSON body into v, reporting failures as 400s under label.
func decode(w http.ResponseWriter, r *http.Request, label string, v any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, http.StatusRequestEntityTooLarge, label, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, label, "request body is empty")
		default:
			writeError(w, http.StatusBadRequest, label, "malformed JSON body: "+err.Error())
		}
		return false
	}
	return true
}

func (s *Server) middlewareError(w http.ResponseWriter, _ *http.Request, err error) {
	var ae *middleware.AuthError
	var ve *middleware.ValidationError
	switch {
	case errors.As(err, &ae):
		writeError(w, ae.StatusCode, ErrUnauthorized, ae.Message)
	case errors.As(err, &ve):
		writeError(w, ve.StatusCode, ErrInvalidRequest, ve.Detail())
	default:
		writeError(w, http.StatusBadRequest, ErrInvalidRequest, err.Error())
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	ai := "disabled"
	if s.ai {
		ai = "enabled"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"service":  ServiceName,
		"version":  s.version,
		"features": Features,
		"ai":       ai,
	})
}

func (s *Server) demo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "POST code snippets to the endpoints below",
		"apiDocs": "/docs/openapi.yaml",
		"endpoints": []string{
			"POST /api/generate/openapi",
			"POST /api/analyze/controller",
			"POST /api/validate/auth",
			"POST /api/ai/analyze",
			"POST /api/ai/openapi",
			"POST /api/ai/auth",
		},
	})
}

func (s *Server) docs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(Spec)
}

func (s *Server) generateOpenAPI(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decode(w, r, ErrGeneration, &req) {
		return
	}
	frag, err := orchestrator.Guard("openapi", func() (*model.Fragment, error) { return openapi.Infer(req.Code) })
	if err != nil {
		s.fail(w, r, ErrGeneration, err)
		return
	}
	writeJSON(w, http.StatusOK, frag)
}

func (s *Server) analyzeController(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decode(w, r, ErrAnalysis, &req) {
		return
	}
	report, err := orchestrator.Guard("controller", func() (*model.AnalysisReport, error) {
		return analyzer.AnalyzeController(req.Code)
	})
	if err != nil {
		s.fail(w, r, ErrAnalysis, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) validateAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decode(w, r, ErrAuthValidation, &req) {
		return
	}
	if len(req.Config) == 0 || string(req.Config) == "null" {
		writeError(w, http.StatusBadRequest, ErrAuthValidation, "config is required")
		return
	}

	cfg, err := schema.Validate[model.AuthConfig](string(req.Config), schema.AuthConfigShape)
	if err != nil {
		s.fail(w, r, ErrAuthValidation, err)
		return
	}

	report, err := orchestrator.Guard("auth", func() (*model.AuthValidationReport, error) {
		return analyzer.ValidateAuth(cfg), nil
	})
	if err != nil {
		s.fail(w, r, ErrAuthValidation, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) aiAnalyze(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decode(w, r, ErrAnalysis, &req) {
		return
	}
	env, err := s.orch.Analyze(r.Context(), req.Code)
	if err != nil {
		s.fail(w, r, ErrAnalysis, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) aiOpenAPI(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decode(w, r, ErrAIGeneration, &req) {
		return
	}
	env, err := s.orch.OpenAPI(r.Context(), req.Code)
	if err != nil {
		s.fail(w, r, ErrAIGeneration, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) aiAuth(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decode(w, r, ErrAuthValidation, &req) {
		return
	}
	env, err := s.orch.Auth(r.Context(), req.Code)
	if err != nil {
		s.fail(w, r, ErrAuthValidation, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}
