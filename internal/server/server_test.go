package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kolah/codepilot/internal/ai"
	"github.com/kolah/codepilot/internal/config"
	"github.com/kolah/codepilot/internal/llm"
	"github.com/kolah/codepilot/internal/openapi"
	"github.com/kolah/codepilot/internal/orchestrator"
	"github.com/kolah/codepilot/internal/prompts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func serverConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:             "127.0.0.1",
		Port:             3000,
		MaxBodyBytes:     1 << 20,
		ValidateRequests: true,
		ShutdownTimeout:  time.Second,
	}
}

func newServer(t *testing.T, cfg config.ServerConfig, client llm.Client) *Server {
	t.Helper()
	engine, err := prompts.New("")
	require.NoError(t, err)

	w := ai.New(client, engine, ai.Config{Enabled: client != nil, Temperature: ai.DefaultTemperature}, zerolog.Nop())
	s, err := New(Options{
		Config:       cfg,
		Orchestrator: orchestrator.New(w, zerolog.Nop()),
		Logger:       zerolog.Nop(),
		Version:      "test",
		AIEnabled:    w.Enabled(),
	})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	s := newServer(t, serverConfig(), nil)
	rec, body := do(t, s, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, ServiceName, body["service"])
	require.Equal(t, "test", body["version"])
	require.Equal(t, "disabled", body["ai"])
	require.Len(t, body["features"], len(Features))
	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestHealthReportsAIEnabled(t *testing.T) {
	s := newServer(t, serverConfig(), &llm.Fake{})
	_, body := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, "enabled", body["ai"])
}

func TestRequestIDPropagated(t *testing.T) {
	s := newServer(t, serverConfig(), nil)
	rec, _ := do(t, s, http.MethodGet, "/health", "", RequestIDHeader, "abc-123")
	require.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestDocsAndDemo(t *testing.T) {
	s := newServer(t, serverConfig(), nil)

	rec, _ := do(t, s, http.MethodGet, "/docs/openapi.yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/api/ai/analyze:")

	rec, body := do(t, s, http.MethodGet, "/demo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/docs/openapi.yaml", body["apiDocs"])
}

func TestEmbeddedSpecLoads(t *testing.T) {
	res, err := openapi.Load(Spec)
	require.NoError(t, err)
	require.Equal(t, "3.0.3", res.Version)
}

func TestGenerateOpenAPI(t *testing.T) {
	s := newServer(t, serverConfig(), nil)
	rec, body := do(t, s, http.MethodPost, "/api/generate/openapi", `{"code":"app.get(\"/api/users\", getUser)"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "GET", body["method"])
	require.Equal(t, "/api/users", body["path"])
	responses := body["responses"].(map[string]any)
	require.Contains(t, responses, "200")
	require.Contains(t, responses, "500")
}

func TestSyntaxErrorIs400(t *testing.T) {
	s := newServer(t, serverConfig(), nil)

	tests := []struct {
		path  string
		label string
	}{
		{"/api/generate/openapi", ErrGeneration},
		{"/api/analyze/controller", ErrAnalysis},
		{"/api/ai/analyze", ErrAnalysis},
		{"/api/ai/openapi", ErrAIGeneration},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, body := do(t, s, http.MethodPost, tt.path, `{"code":""}`)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tt.label, body["error"])
			require.Equal(t, "Syntax error: Code is empty", body["message"])
		})
	}
}

func TestMissingCodeRejected(t *testing.T) {
	s := newServer(t, serverConfig(), nil)
	rec, body := do(t, s, http.MethodPost, "/api/analyze/controller", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, ErrInvalidRequest, body["error"])
	require.NotEmpty(t, body["message"])
}

func TestMalformedBodyWithoutValidation(t *testing.T) {
	cfg := serverConfig()
	cfg.ValidateRequests = false
	s := newServer(t, cfg, nil)

	rec, body := do(t, s, http.MethodPost, "/api/analyze/controller", `{"code":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, ErrAnalysis, body["error"])
	require.Contains(t, body["message"], "malformed JSON body")
}

func TestBodyTooLarge(t *testing.T) {
	cfg := serverConfig()
	cfg.ValidateRequests = false
	cfg.MaxBodyBytes = 16
	s := newServer(t, cfg, nil)

	rec, _ := do(t, s, http.MethodPost, "/api/analyze/controller", `{"code":"`+strings.Repeat("x", 64)+`"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyzeController(t *testing.T) {
	s := newServer(t, serverConfig(), nil)
	code := `router.post("/users", async (req, res) => { const u = await create(req.body); console.log(u); })`
	rec, body := do(t, s, http.MethodPost, "/api/analyze/controller", `{"code":`+quote(code)+`}`)

	require.Equal(t, http.StatusOK, rec.Code)
	complexity := body["complexity"].(map[string]any)
	require.Equal(t, "LOW", complexity["level"])
	require.Len(t, complexity["issues"], 3)
}

func TestValidateAuth(t *testing.T) {
	s := newServer(t, serverConfig(), nil)
	payload := `{"config":{
		"routes":[
			{"path":"/api/admin","method":"GET","middleware":[],"roles":["admin"]},
			{"path":"/api/users","method":"GET","middleware":["auth"],"roles":["admin"]}
		],
		"middleware":{"auth":["user"]},
		"roleHierarchy":{}
	}}`
	rec, body := do(t, s, http.MethodPost, "/api/validate/auth", payload)

	require.Equal(t, http.StatusOK, rec.Code)
	leaks := body["leaks"].([]any)
	require.Len(t, leaks, 1)
	require.Equal(t, "HIGH", leaks[0].(map[string]any)["severity"])
	require.Len(t, body["mismatches"], 1)
	require.Len(t, body["suggestions"], 2)
}

func TestValidateAuthRejectsBadConfig(t *testing.T) {
	cfg := serverConfig()
	cfg.ValidateRequests = false
	s := newServer(t, cfg, nil)

	rec, body := do(t, s, http.MethodPost, "/api/validate/auth", `{"config":{"routes":"nope"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, ErrAuthValidation, body["error"])
	require.Contains(t, body["message"], "`routes`")

	rec, body = do(t, s, http.MethodPost, "/api/validate/auth", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "config is required", body["message"])
}

func TestAIEndpointsFallBack(t *testing.T) {
	s := newServer(t, serverConfig(), nil)

	rec, body := do(t, s, http.MethodPost, "/api/ai/analyze", `{"code":"const f = () => 1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "rule-based-fallback", body["source"])
	require.Equal(t, orchestrator.NoteAnalysisUnavailable, body["note"])
	require.Contains(t, body, "complexity")
	require.Contains(t, body, "timestamp")

	rec, body = do(t, s, http.MethodPost, "/api/ai/openapi", `{"code":"app.get('/x', h)"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "rule-based-fallback", body["source"])
	require.Equal(t, "/x", body["path"])

	rec, body = do(t, s, http.MethodPost, "/api/ai/auth", `{"code":"jwt.verify(t)"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "rule-based-only", body["source"])
	require.Equal(t, "UNKNOWN", body["riskLevel"])
}

func TestAIEndpointUsesModel(t *testing.T) {
	fake := &llm.Fake{Reply: `{"vulnerabilities":["hardcoded secret"],"recommendations":["use env"],"riskLevel":"HIGH"}`}
	s := newServer(t, serverConfig(), fake)

	rec, body := do(t, s, http.MethodPost, "/api/ai/auth", `{"code":"jwt.sign(p, 'secret')"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ai-powered", body["source"])
	require.NotContains(t, body, "note")
	require.Equal(t, "HIGH", body["riskLevel"])
	require.Equal(t, 1, fake.Calls())
}

func TestAPIKeyGuard(t *testing.T) {
	cfg := serverConfig()
	cfg.APIKeys = []string{"k1"}
	s := newServer(t, cfg, nil)

	rec, body := do(t, s, http.MethodPost, "/api/analyze/controller", `{"code":"const f = () => 1"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, ErrUnauthorized, body["error"])

	rec, _ = do(t, s, http.MethodPost, "/api/analyze/controller", `{"code":"const f = () => 1"}`, APIKeyHeader, "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/analyze/controller", `{"code":"const f = () => 1"}`, APIKeyHeader, "k1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLogCarriesKeyFingerprint(t *testing.T) {
	cfg := serverConfig()
	cfg.APIKeys = []string{"k1"}

	engine, err := prompts.New("")
	require.NoError(t, err)
	var logs bytes.Buffer
	s, err := New(Options{
		Config:       cfg,
		Orchestrator: orchestrator.New(ai.New(nil, engine, ai.Config{}, zerolog.Nop()), zerolog.Nop()),
		Logger:       zerolog.New(&logs),
		Version:      "test",
	})
	require.NoError(t, err)

	rec, _ := do(t, s, http.MethodPost, "/api/analyze/controller", `{"code":"const f = () => 1"}`, APIKeyHeader, "k1")
	require.Equal(t, http.StatusOK, rec.Code)

	var entry map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var e map[string]any
		require.NoError(t, json.Unmarshal(line, &e))
		if e["message"] == "request" {
			entry = e
		}
	}
	require.NotNil(t, entry, logs.String())
	require.Equal(t, "/api/analyze/controller", entry["path"])
	require.Regexp(t, `^[0-9a-f]{8}$`, entry["api_key"])
	require.NotContains(t, logs.String(), "k1\"")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := newServer(t, serverConfig(), nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
