package model

// Fragment is a single-operation OpenAPI description inferred from a code
// snippet. It is deliberately flatter than a full OpenAPI operation: one
// method, one path, parameter types as plain strings.
type Fragment struct {
	Method      Method              `json:"method" yaml:"method"`
	Path        string              `json:"path" yaml:"path"`
	Summary     string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses" yaml:"responses"`
	Security    []map[string]any    `json:"security,omitempty" yaml:"security,omitempty"`
}

type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
)

type ParameterLocation string

const (
	LocationPath   ParameterLocation = "path"
	LocationQuery  ParameterLocation = "query"
	LocationHeader ParameterLocation = "header"
	LocationCookie ParameterLocation = "cookie"
)

type Parameter struct {
	Name        string            `json:"name" yaml:"name"`
	In          ParameterLocation `json:"in" yaml:"in"`
	Required    bool              `json:"required" yaml:"required"`
	Type        string            `json:"type" yaml:"type"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
}

type RequestBody struct {
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Content     map[string]MediaType `json:"content" yaml:"content"`
}

// MediaType holds a free-form JSON schema object for one media type.
type MediaType struct {
	Schema map[string]any `json:"schema" yaml:"schema"`
}

type Response struct {
	Description string               `json:"description" yaml:"description"`
	Content     map[string]MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}
