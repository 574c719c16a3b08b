package openapi

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kolah/codepilot/internal/model"
	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"go.yaml.in/yaml/v4"
)

// Version is the OpenAPI version of documents built from fragments.
const Version = "3.0.3"

type Info struct {
	Title   string
	Version string
}

type Result struct {
	Document *libopenapi.DocumentModel[v3.Document]
	Version  string
	RawData  []byte
}

type document struct {
	OpenAPI string                          `json:"openapi" yaml:"openapi"`
	Info    docInfo                         `json:"info" yaml:"info"`
	Paths   map[string]map[string]operation `json:"paths" yaml:"paths"`
}

type docInfo struct {
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
}

type operation struct {
	Summary     string                    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  []parameter               `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *model.RequestBody        `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]model.Response `json:"responses" yaml:"responses"`
	Security    []map[string]any          `json:"security,omitempty" yaml:"security,omitempty"`
}

type parameter struct {
	Name        string         `json:"name" yaml:"name"`
	In          string         `json:"in" yaml:"in"`
	Required    bool           `json:"required" yaml:"required"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      map[string]any `json:"schema" yaml:"schema"`
}

var expressParam = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// TemplatePath rewrites Express-style parameters (/users/:id) into OpenAPI
// templates (/users/{id}).
func TemplatePath(p string) string {
	return expressParam.ReplaceAllString(p, "{$1}")
}

var templateParam = regexp.MustCompile(`\{([^}/]+)\}`)

func build(frag *model.Fragment, info Info) document {
	path := TemplatePath(frag.Path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	op := operation{
		Summary:     frag.Summary,
		Description: frag.Description,
		RequestBody: frag.RequestBody,
		Responses:   frag.Responses,
		Security:    frag.Security,
	}

	declared := map[string]bool{}
	for _, p := range frag.Parameters {
		typ := p.Type
		if typ == "" {
			typ = "string"
		}
		op.Parameters = append(op.Parameters, parameter{
			Name:        p.Name,
			In:          string(p.In),
			Required:    p.Required || p.In == model.LocationPath,
			Description: p.Description,
			Schema:      map[string]any{"type": typ},
		})
		if p.In == model.LocationPath {
			declared[p.Name] = true
		}
	}

	// Every templated segment needs a path parameter.
	for _, m := range templateParam.FindAllStringSubmatch(path, -1) {
		if declared[m[1]] {
			continue
		}
		declared[m[1]] = true
		op.Parameters = append(op.Parameters, parameter{
			Name:     m[1],
			In:       string(model.LocationPath),
			Required: true,
			Schema:   map[string]any{"type": "string"},
		})
	}

	if info.Title == "" {
		info.Title = "Inferred API"
	}
	if info.Version == "" {
		info.Version = "1.0.0"
	}

	return document{
		OpenAPI: Version,
		Info:    docInfo{Title: info.Title, Version: info.Version},
		Paths: map[string]map[string]operation{
			path: {strings.ToLower(string(frag.Method)): op},
		},
	}
}

// Document wraps a fragment in a complete OpenAPI document and loads it with
// libopenapi, which rejects fragments that do not form a usable operation.
func Document(frag *model.Fragment, info Info) (*Result, error) {
	data, err := json.Marshal(build(frag, info))
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}

	result, err := Load(data)
	if err != nil {
		return nil, err
	}

	op := findOperation(result.Document, TemplatePath(frag.Path), string(frag.Method))
	if op == nil {
		return nil, fmt.Errorf("operation %s %s missing from built document", frag.Method, frag.Path)
	}
	if op.Responses == nil || (op.Responses.Codes.Len() == 0 && op.Responses.Default == nil) {
		return nil, fmt.Errorf("operation %s %s has no responses", frag.Method, frag.Path)
	}

	return result, nil
}

// Load parses an OpenAPI 3.x document.
func Load(data []byte) (*Result, error) {
	doc, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing OpenAPI document: %w", err)
	}

	version := doc.GetVersion()
	if !strings.HasPrefix(version, "3.") {
		return nil, fmt.Errorf("unsupported OpenAPI version: %s (only 3.x supported)", version)
	}

	m, err := doc.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("building OpenAPI model: %w", err)
	}

	return &Result{
		Document: m,
		Version:  version,
		RawData:  data,
	}, nil
}

func findOperation(m *libopenapi.DocumentModel[v3.Document], path, method string) *v3.Operation {
	if m == nil || m.Model.Paths == nil || m.Model.Paths.PathItems == nil {
		return nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for pair := m.Model.Paths.PathItems.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key != path {
			continue
		}
		switch strings.ToUpper(method) {
		case "GET":
			return pair.Value.Get
		case "POST":
			return pair.Value.Post
		case "PUT":
			return pair.Value.Put
		case "DELETE":
			return pair.Value.Delete
		case "PATCH":
			return pair.Value.Patch
		}
	}
	return nil
}

// Marshal renders v as indented JSON or YAML.
func Marshal(v any, format string) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(v, "", "  ")
	case "yaml":
		return yaml.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported format: %s (valid: json, yaml)", format)
	}
}

// MarshalDocument renders the complete document for frag.
func MarshalDocument(frag *model.Fragment, info Info, format string) ([]byte, error) {
	if _, err := Document(frag, info); err != nil {
		return nil, err
	}
	return Marshal(build(frag, info), format)
}
