// Package schema checks JSON documents against the output contracts of the
// analysis capabilities. Each contract is a JSON Schema document mirrored
// field-by-field by a Go type in internal/model.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Shape is a compiled output contract.
type Shape struct {
	name   string
	schema *jsonschema.Schema
}

// NewShape compiles a JSON Schema document under the given name.
func NewShape(name, document string) (*Shape, error) {
	url := name + ".json"
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(document)); err != nil {
		return nil, fmt.Errorf("adding schema %s: %w", name, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}
	return &Shape{name: name, schema: s}, nil
}

// MustShape is like NewShape but panics on error. Use it for package-level
// contracts only.
func MustShape(name, document string) *Shape {
	s, err := NewShape(name, document)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Shape) Name() string {
	return s.name
}

// Check validates an already-decoded JSON value.
func (s *Shape) Check(v any) error {
	err := s.schema.Validate(v)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &ViolationError{Shape: s.name, Violations: []Violation{{Message: err.Error()}}}
	}

	violation := &ViolationError{Shape: s.name}
	collectLeaves(verr, &violation.Violations)
	if len(violation.Violations) == 0 {
		violation.Violations = append(violation.Violations, Violation{
			Path:    pointerToPath(verr.InstanceLocation),
			Message: verr.Message,
		})
	}
	return violation
}

func collectLeaves(e *jsonschema.ValidationError, out *[]Violation) {
	if len(e.Causes) == 0 {
		*out = append(*out, Violation{
			Path:    pointerToPath(e.InstanceLocation),
			Message: e.Message,
		})
		return
	}
	for _, c := range e.Causes {
		collectLeaves(c, out)
	}
}

// pointerToPath turns a JSON pointer such as /responses/200/description into
// responses.200.description.
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	parts := strings.Split(ptr, "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return strings.Join(parts, ".")
}

// Parse decodes raw JSON text, keeping numbers as json.Number.
func Parse(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{Err: err}
	}
	if dec.More() {
		return nil, &ParseError{Err: errors.New("unexpected data after top-level value")}
	}
	return v, nil
}

// Validate parses raw, checks it against shape and decodes it into T.
func Validate[T any](raw string, shape *Shape) (T, error) {
	var zero T

	v, err := Parse(raw)
	if err != nil {
		return zero, err
	}
	if err := shape.Check(v); err != nil {
		return zero, err
	}
	return Decode[T](v)
}

// Decode converts a decoded JSON value into T.
func Decode[T any](v any) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("re-encoding value: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding value: %w", err)
	}
	return out, nil
}

// Conform checks that a Go value, once encoded, satisfies shape.
func Conform(v any, shape *Shape) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}
	generic, err := Parse(string(data))
	if err != nil {
		return err
	}
	return shape.Check(generic)
}

var fences = regexp.MustCompile("```[a-zA-Z]*\n|```")

// StripFences removes markdown code fences such as ```json ... ``` that
// models wrap around JSON despite instructions.
func StripFences(text string) string {
	return strings.TrimSpace(fences.ReplaceAllString(text, ""))
}

// MaxArrayLen bounds array fields of sanitized objects.
const MaxArrayLen = 100

var pollutionKeys = []string{"__proto__", "constructor", "prototype"}

// Sanitize returns a shallow copy of obj without prototype-pollution keys
// and with every top-level array truncated to MaxArrayLen elements.
func Sanitize(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	for _, k := range pollutionKeys {
		delete(out, k)
	}
	for k, v := range out {
		if arr, ok := v.([]any); ok && len(arr) > MaxArrayLen {
			out[k] = arr[:MaxArrayLen]
		}
	}
	return out
}
