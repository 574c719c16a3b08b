// Package prompts renders the instructions sent to the model for each
// capability.
package prompts

import (
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.tmpl
var FS embed.FS

// Template names, one per capability.
const (
	Analysis = "analysis.tmpl"
	OpenAPI  = "openapi.tmpl"
	Auth     = "auth.tmpl"
)

// Data is what every prompt template sees.
type Data struct {
	Code string
}

// New returns an engine over the built-in prompts, overridden by any
// same-named files in customDir.
func New(customDir string) (*TextTemplateEngine, error) {
	e, err := NewEngine(FS, customDir, template.FuncMap{})
	if err != nil {
		return nil, fmt.Errorf("creating prompt engine: %w", err)
	}
	for _, name := range []string{Analysis, OpenAPI, Auth} {
		if !e.has(name) {
			return nil, fmt.Errorf("prompt %s missing", name)
		}
	}
	return e, nil
}

// Render executes the named prompt with code substituted in.
func Render(e Engine, name, code string) (string, error) {
	return e.Execute(name, Data{Code: code})
}
