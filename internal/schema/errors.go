package schema

import (
	"fmt"
	"strings"
)

// ParseError reports text that is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Violation is one unmet constraint. Path is dot-separated and empty for the
// document root.
type Violation struct {
	Path    string
	Message string
}

func (v Violation) String() string {
	if v.Path == "" {
		return "document: " + v.Message
	}
	return fmt.Sprintf("field `%s`: %s", v.Path, v.Message)
}

// ViolationError reports a document that parsed but does not match a shape.
type ViolationError struct {
	Shape      string
	Violations []Violation
}

func (e *ViolationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return fmt.Sprintf("%s schema violation: %s", e.Shape, strings.Join(msgs, "; "))
}
