package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/kolah/codepilot/internal/config"
	"github.com/kolah/codepilot/internal/model"
	"github.com/kolah/codepilot/internal/orchestrator"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"HOST", "PORT", "CODEPILOT_API_KEYS", "AI_ENABLED", "AI_PROVIDER", "AI_MODEL",
	"AI_BASE_URL", "AI_TIMEOUT", "AI_REDACT", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	"LOG_LEVEL", "LOG_FORMAT", "PROMPTS_DIR",
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
	}
	color.NoColor = true

	var stdout, stderr bytes.Buffer
	root := RootCmd()
	root.SetArgs(append([]string{"--env-file="}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	require.Equal(t, Version+"\n", out)
}

func TestAnalyzeControllerJSONFromStdin(t *testing.T) {
	code := "async function h(req, res) { const u = await db.find(); console.log(u) }"
	out, _, err := run(t, code, "analyze", "controller", "-o", "json")
	require.NoError(t, err)

	var report model.AnalysisReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, model.LevelLow, report.Complexity.Level)
	require.Len(t, report.Complexity.Issues, 3)
}

func TestAnalyzeControllerHumanFromFile(t *testing.T) {
	path := writeFile(t, "controller.js", "const x = validate(req.body)")
	out, _, err := run(t, "", "analyze", "controller", path)
	require.NoError(t, err)

	require.Contains(t, out, "Controller analysis")
	require.Contains(t, out, "Complexity: 0 (LOW)")
	require.Contains(t, out, "Issues:\n  (none)")
	require.Contains(t, out, "input-validation")
}

func TestAnalyzeControllerEmptyInput(t *testing.T) {
	_, _, err := run(t, "   ", "analyze", "controller")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Code is empty")
}

func TestAnalyzeControllerAIWithoutKeyFallsBack(t *testing.T) {
	out, _, err := run(t, "const f = () => 1", "--ai", "analyze", "controller", "-o", "json")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.Equal(t, "rule-based-fallback", body["source"])
	require.Equal(t, orchestrator.NoteAnalysisUnavailable, body["note"])
	require.Contains(t, body, "complexity")
}

func TestAnalyzeOpenAPIYAML(t *testing.T) {
	out, _, err := run(t, `router.post("/users", createUser)`, "analyze", "openapi", "-o", "yaml")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(out, "method: POST\npath: /users\n"), out)
	require.Contains(t, out, `"200":`)
}

func TestAnalyzeOpenAPIHuman(t *testing.T) {
	out, _, err := run(t, `app.delete("/users/:id", remove)`, "analyze", "openapi")
	require.NoError(t, err)

	require.Contains(t, out, "DELETE /users/:id")
	require.Contains(t, out, "200 Successful response")
	require.Contains(t, out, "500 Server error")
}

func TestAnalyzeOpenAPIDocument(t *testing.T) {
	out, _, err := run(t, `app.get("/users/:id", getUser)`,
		"analyze", "openapi", "--document", "--title", "Users", "--api-version", "2.0.0")
	require.NoError(t, err)

	require.Contains(t, out, "openapi: 3.0.3")
	require.Contains(t, out, "title: Users")
	require.Contains(t, out, "/users/{id}:")
	require.Contains(t, out, "name: id")
}

func TestAnalyzeAuthYAML(t *testing.T) {
	path := writeFile(t, "auth.yaml", `
routes:
  - path: /api/admin
    method: GET
    roles: [admin]
  - path: /api/users
    method: GET
    middleware: [auth]
    roles: [admin]
middleware:
  auth: [user]
`)
	out, _, err := run(t, "", "analyze", "auth", path, "-o", "json")
	require.NoError(t, err)

	var report model.AuthValidationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Leaks, 1)
	require.Equal(t, model.SeverityHigh, report.Leaks[0].Severity)
	require.Len(t, report.Mismatches, 1)
	require.Equal(t, []string{"user"}, report.Mismatches[0].AssignedRoles)
}

func TestAnalyzeAuthHuman(t *testing.T) {
	out, _, err := run(t, `{"routes":[{"path":"/health","method":"GET"}]}`, "analyze", "auth")
	require.NoError(t, err)

	require.Contains(t, out, "[MEDIUM] GET /health")
	require.Contains(t, out, "Role mismatches:\n  (none)")
}

func TestAnalyzeAuthRejectsInvalidConfig(t *testing.T) {
	_, _, err := run(t, `{"routes":"nope"}`, "analyze", "auth")
	require.Error(t, err)
	require.Contains(t, err.Error(), "auth-config schema violation")
}

func TestAnalyzeAuthFlowRuleOnly(t *testing.T) {
	out, _, err := run(t, "jwt.verify(token)", "analyze", "auth-flow", "-o", "json")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.Equal(t, "rule-based-only", body["source"])
	require.Equal(t, "UNKNOWN", body["riskLevel"])
	require.Equal(t, []any{"AI service not available"}, body["vulnerabilities"])
}

func TestAnalyzeUnknownFormat(t *testing.T) {
	_, _, err := run(t, "x", "analyze", "controller", "-o", "toml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported output format")
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, _, err := run(t, "", "analyze", "controller", filepath.Join(t.TempDir(), "missing.js"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading input")
}

func TestToYAMLKeepsOrderAndTypes(t *testing.T) {
	out, err := toYAML(map[string]any{"b": "200", "a": []int{1, 2}})
	require.NoError(t, err)
	text := string(out)
	require.True(t, strings.HasPrefix(text, "a:\n"), text)
	require.Contains(t, text, "- 1\n")
	require.Contains(t, text, "\nb: \"200\"\n")
	require.NotContains(t, text, "[")
}

func TestAuthConfigJSON(t *testing.T) {
	raw, err := authConfigJSON([]byte("  {\"routes\":[]}\n"))
	require.NoError(t, err)
	require.Equal(t, `{"routes":[]}`, raw)

	raw, err = authConfigJSON([]byte("routes: []\n"))
	require.NoError(t, err)
	require.JSONEq(t, `{"routes":[]}`, raw)

	_, err = authConfigJSON([]byte("\n"))
	require.Error(t, err)
}

func TestNewClient(t *testing.T) {
	client, err := newClient(config.AIConfig{Enabled: true, Provider: "openai"})
	require.NoError(t, err)
	require.Nil(t, client)

	client, err = newClient(config.AIConfig{Enabled: false, Provider: "openai", OpenAIKey: "sk-test"})
	require.NoError(t, err)
	require.Nil(t, client)

	client, err = newClient(config.AIConfig{Enabled: true, Provider: "anthropic", AnthropicKey: "k", Model: "claude-x"})
	require.NoError(t, err)
	require.NotNil(t, client)
	require.Equal(t, "claude-x", client.Model())
}
