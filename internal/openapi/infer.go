// Package openapi infers OpenAPI fragments from route code and turns them
// into complete OpenAPI 3 documents.
package openapi

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kolah/codepilot/internal/analyzer"
	"github.com/kolah/codepilot/internal/model"
	"github.com/kolah/codepilot/internal/schema"
)

const (
	DefaultPath        = "/api/unknown"
	DefaultDescription = "Auto-generated OpenAPI specification"
)

var (
	methodPattern = regexp.MustCompile(`(?i)(get|post|put|delete|patch)\s*\(`)
	pathPattern   = regexp.MustCompile("['\"`]([^'\"`]+)['\"`]")
)

// Infer extracts the first route-like call from code. The first verb and
// the first quoted literal win; nothing ties the two together.
func Infer(code string) (*model.Fragment, error) {
	if err := analyzer.CheckSyntax(code); err != nil {
		return nil, err
	}

	method := model.MethodGet
	if m := methodPattern.FindStringSubmatch(code); m != nil {
		method = model.Method(strings.ToUpper(m[1]))
	}

	path := DefaultPath
	if m := pathPattern.FindStringSubmatch(code); m != nil {
		path = m[1]
	}

	frag := &model.Fragment{
		Method:      method,
		Path:        path,
		Description: DefaultDescription,
		Responses: map[string]model.Response{
			"200": {Description: "Successful response"},
			"500": {Description: "Server error"},
		},
	}

	if err := schema.Conform(frag, schema.OpenAPIShape); err != nil {
		return nil, fmt.Errorf("inferred fragment is invalid: %w", err)
	}
	return frag, nil
}
