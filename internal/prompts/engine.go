package prompts

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"text/template"
)

type Engine interface {
	Execute(name string, data any) (string, error)
}

type TextTemplateEngine struct {
	set *template.Template
}

// NewEngine parses the .tmpl files under templates/ in embedded, then the
// .tmpl files of customDir. A custom file replaces the built-in one with
// the same relative name.
func NewEngine(embedded fs.FS, customDir string, funcs template.FuncMap) (*TextTemplateEngine, error) {
	set := template.New("").Funcs(funcs)

	if err := parseTree(set, embedded, "templates"); err != nil {
		return nil, fmt.Errorf("loading embedded templates: %w", err)
	}

	if customDir != "" {
		err := parseTree(set, os.DirFS(customDir), ".")
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading custom templates from %s: %w", customDir, err)
		}
	}

	return &TextTemplateEngine{set: set}, nil
}

func parseTree(set *template.Template, fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".tmpl" {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		name := p
		if root != "." {
			name = p[len(root)+1:]
		}
		if _, err := set.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		return nil
	})
}

func (e *TextTemplateEngine) has(name string) bool {
	return e.set.Lookup(name) != nil
}

func (e *TextTemplateEngine) Execute(name string, data any) (string, error) {
	tmpl := e.set.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("template not found: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return buf.String(), nil
}
