// Package analyzer contains the deterministic analyzers used when no model
// is available. They are pure functions of their input.
package analyzer

import (
	"strings"

	"github.com/kolah/codepilot/internal/model"
)

const (
	IssueMissingTryCatch = "Missing try-catch for async operations"
	IssueNoValidation    = "No input validation detected"
	IssueConsoleLog      = "Console.log found in production code"
)

var validationTokens = []string{"validate", "zod", "joi"}

// AnalyzeController scores a controller snippet by line count and flags a
// few common omissions.
func AnalyzeController(code string) (*model.AnalysisReport, error) {
	if err := CheckSyntax(code); err != nil {
		return nil, err
	}

	lines := strings.Count(code, "\n") + 1
	score := min(lines/10, 10)

	issues := []string{}
	if strings.Contains(code, "await") && !strings.Contains(code, "try") {
		issues = append(issues, IssueMissingTryCatch)
	}
	if !containsAny(code, validationTokens) {
		issues = append(issues, IssueNoValidation)
	}
	if strings.Contains(code, "console.log") {
		issues = append(issues, IssueConsoleLog)
	}

	// Validations and suggestions do not yet depend on the code.
	return &model.AnalysisReport{
		Complexity: model.Complexity{
			Score:  score,
			Level:  levelFor(score),
			Issues: issues,
		},
		Validations: model.Validations{
			Missing: []string{"input-validation", "error-handling", "type-checking"},
			Present: []string{"basic-structure"},
		},
		Suggestions: []string{
			"Consider adding input validation with Zod",
			"Add proper error handling with try-catch",
			"Extract business logic to separate functions",
		},
	}, nil
}

func levelFor(score int) model.Level {
	switch {
	case score < 3:
		return model.LevelLow
	case score < 6:
		return model.LevelMedium
	case score < 9:
		return model.LevelHigh
	default:
		return model.LevelCritical
	}
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
