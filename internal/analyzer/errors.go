package analyzer

import (
	"strings"

	"github.com/kolah/codepilot/internal/rules"
)

// SyntaxError aborts an analysis whose input failed the syntax check. It is
// an input problem, not an analyzer fault.
type SyntaxError struct {
	Result rules.Result
}

func (e *SyntaxError) Error() string {
	return "Syntax error: " + strings.Join(e.Result.Errors, ", ")
}

// CheckSyntax returns a *SyntaxError when code fails the syntax check.
func CheckSyntax(code string) error {
	res := rules.CheckSyntax(code)
	if !res.Valid {
		return &SyntaxError{Result: res}
	}
	return nil
}
