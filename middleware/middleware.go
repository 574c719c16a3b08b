// Package middleware validates HTTP requests against an OpenAPI document
// and enforces the document's API-key security requirements.
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	validator "github.com/pb33f/libopenapi-validator"
	validatorErrors "github.com/pb33f/libopenapi-validator/errors"
)

// Middleware validates requests against an OpenAPI spec.
type Middleware struct {
	validator validator.Validator
	guards    []guard
	options   *Options
}

// guard is the resolved security of one operation. Any one scheme admits
// the request; open operations need none.
type guard struct {
	pattern string
	method  string
	open    bool
	schemes []scheme
}

type scheme struct {
	name   string
	scopes []string
}

// New creates middleware from an OpenAPI document.
func New(spec []byte, opts *Options) (*Middleware, error) {
	doc, err := libopenapi.NewDocument(spec)
	if err != nil {
		return nil, err
	}

	v, errs := validator.NewValidator(doc)
	if len(errs) > 0 {
		return nil, errs[0]
	}

	model, err := doc.BuildV3Model()
	if err != nil {
		return nil, err
	}

	guards, err := resolveGuards(&model.Model)
	if err != nil {
		return nil, err
	}

	if opts == nil {
		opts = DefaultOptions()
	}

	return &Middleware{
		validator: v,
		guards:    guards,
		options:   opts,
	}, nil
}

// resolveGuards applies the document-level requirement to operations that
// declare none. Requirements combining several schemes are rejected.
func resolveGuards(doc *v3.Document) ([]guard, error) {
	if doc.Paths == nil || doc.Paths.PathItems == nil {
		return nil, nil
	}

	var guards []guard
	for path := doc.Paths.PathItems.Oldest(); path != nil; path = path.Next() {
		ops := path.Value.GetOperations()
		for op := ops.Oldest(); op != nil; op = op.Next() {
			reqs := op.Value.Security
			if reqs == nil {
				reqs = doc.Security
			}

			g := guard{pattern: path.Key, method: strings.ToUpper(op.Key), open: len(reqs) == 0}
			for _, req := range reqs {
				if req.Requirements == nil || req.Requirements.Len() == 0 {
					g.open = true
					continue
				}
				if req.Requirements.Len() > 1 {
					return nil, fmt.Errorf("%s %s: combined security requirements are not supported", g.method, g.pattern)
				}
				first := req.Requirements.Oldest()
				g.schemes = append(g.schemes, scheme{name: first.Key, scopes: first.Value})
			}
			guards = append(guards, g)
		}
	}
	return guards, nil
}

// Handler returns an http.Handler middleware. Security runs first so an
// unauthenticated caller learns nothing about the request shape.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.authenticate(w, r) {
			return
		}

		if m.options.ValidateRequest {
			valid, errors := m.validator.ValidateHttpRequestSync(r)
			if !valid {
				m.handleValidationError(w, r, errors)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) authenticate(w http.ResponseWriter, r *http.Request) bool {
	if m.options.Security == nil {
		return true
	}

	g := m.guardFor(r.URL.Path, r.Method)
	if g == nil || g.open {
		return true
	}

	var lastErr error
	for _, s := range g.schemes {
		handler := m.options.Security.Get(s.name)
		if handler == nil {
			lastErr = NewUnauthorizedError(s.name, "security scheme not configured")
			continue
		}

		sec, err := handler.Handle(r, s.scopes)
		if err != nil {
			lastErr = err
			continue
		}

		// The request is updated in place: outer middleware holding r, such
		// as the server's request logger, reads the security context after
		// the handler returns.
		*r = *r.WithContext(WithSecurityContext(r.Context(), sec))
		return true
	}

	m.handleAuthError(w, r, lastErr)
	return false
}

func (m *Middleware) guardFor(path, method string) *guard {
	for i := range m.guards {
		g := &m.guards[i]
		if g.method == method && matchPath(g.pattern, path) {
			return g
		}
	}
	return nil
}

// matchPath matches a templated path such as /items/{id}.
func matchPath(pattern, path string) bool {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}

	for i, seg := range want {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

func (m *Middleware) handleValidationError(w http.ResponseWriter, r *http.Request, errors []*validatorErrors.ValidationError) {
	err := &ValidationError{
		StatusCode: http.StatusBadRequest,
		Message:    "request validation failed",
		Errors:     errors,
	}

	if m.options.ErrorHandler != nil {
		m.options.ErrorHandler(w, r, err)
		return
	}

	writeError(w, err.StatusCode, "validation_error", err.Detail())
}

func (m *Middleware) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	authErr, ok := err.(*AuthError)
	if !ok {
		authErr = NewUnauthorizedError("", err.Error())
	}

	if m.options.ErrorHandler != nil {
		m.options.ErrorHandler(w, r, authErr)
		return
	}

	writeError(w, authErr.StatusCode, "authentication_error", authErr.Message)
}

func writeError(w http.ResponseWriter, status int, label, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   label,
		"message": message,
	})
}
