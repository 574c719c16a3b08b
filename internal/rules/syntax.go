// Package rules holds text-scan checks shared by the rule-based analyzers.
// None of them parse the code; they look for substrings.
package rules

import (
	"fmt"
	"strings"
)

// Result reports the outcome of CheckSyntax. Errors block further analysis,
// warnings do not.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

const (
	MsgEmpty      = "Code is empty"
	MsgConst      = "Const declaration without assignment"
	MsgNoFunction = "No function definition found"
)

// CheckSyntax runs every check independently; an empty snippet still gets
// the warnings that apply to it.
func CheckSyntax(code string) Result {
	var errs, warnings []string

	if strings.TrimSpace(code) == "" {
		errs = append(errs, MsgEmpty)
	}

	if strings.Contains(code, "const") && !strings.Contains(code, "=") {
		warnings = append(warnings, MsgConst)
	}

	open := strings.Count(code, "(")
	closing := strings.Count(code, ")")
	if open != closing {
		warnings = append(warnings, fmt.Sprintf("Mismatched parentheses: %d opening vs %d closing", open, closing))
	}

	if !strings.Contains(code, "=>") && !strings.Contains(code, "function") {
		warnings = append(warnings, MsgNoFunction)
	}

	return Result{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}
