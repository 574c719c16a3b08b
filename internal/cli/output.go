package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/kolah/codepilot/internal/model"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	sectionColor = color.New(color.FgWhite, color.Bold)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	badColor     = color.New(color.FgRed)
	mutedColor   = color.New(color.FgHiBlack)
)

func levelColor(level string) *color.Color {
	switch strings.ToUpper(level) {
	case "CRITICAL":
		return color.New(color.FgRed, color.Bold)
	case "HIGH":
		return badColor
	case "MEDIUM":
		return warnColor
	case "LOW":
		return okColor
	default:
		return mutedColor
	}
}

func printList(w io.Writer, title string, items []string, c *color.Color) {
	sectionColor.Fprintf(w, "%s:\n", title)
	if len(items) == 0 {
		mutedColor.Fprintln(w, "  (none)")
		return
	}
	for _, item := range items {
		c.Fprintf(w, "  - %s\n", item)
	}
}

func printSource(w io.Writer, source model.Source, note string) {
	c := okColor
	if source != model.SourceAI {
		c = warnColor
	}
	c.Fprintf(w, "Source: %s\n", source)
	if note != "" {
		mutedColor.Fprintf(w, "Note: %s\n", note)
	}
}

func printAnalysisReport(w io.Writer, r *model.AnalysisReport) {
	headerColor.Fprintln(w, "Controller analysis")
	fmt.Fprintf(w, "Complexity: %d ", r.Complexity.Score)
	levelColor(string(r.Complexity.Level)).Fprintf(w, "(%s)\n", r.Complexity.Level)
	printList(w, "Issues", r.Complexity.Issues, badColor)
	printList(w, "Missing validations", r.Validations.Missing, warnColor)
	printList(w, "Present validations", r.Validations.Present, okColor)
	printList(w, "Suggestions", r.Suggestions, okColor)
	if len(r.SecurityConcerns) > 0 {
		printList(w, "Security concerns", r.SecurityConcerns, badColor)
	}
}

func printAIAnalysis(w io.Writer, a *model.AIAnalysis) {
	headerColor.Fprintln(w, "Controller analysis")
	fmt.Fprintf(w, "Complexity: %g\n", a.Complexity)
	printList(w, "Issues", a.Issues, badColor)
	printList(w, "Suggestions", a.Suggestions, okColor)
	printList(w, "Security concerns", a.SecurityConcerns, badColor)
}

func printAnalysisEnvelope(w io.Writer, env *model.AnalysisEnvelope) {
	printSource(w, env.Source, env.Note)
	if env.Source == model.SourceAI {
		printAIAnalysis(w, env.AI)
		return
	}
	printAnalysisReport(w, env.Fallback)
}

func printFragment(w io.Writer, f *model.Fragment) {
	headerColor.Fprintf(w, "%s %s\n", f.Method, f.Path)
	if f.Summary != "" {
		fmt.Fprintf(w, "Summary: %s\n", f.Summary)
	}
	if f.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", f.Description)
	}

	if len(f.Parameters) > 0 {
		sectionColor.Fprintln(w, "Parameters:")
		for _, p := range f.Parameters {
			req := ""
			if p.Required {
				req = " (required)"
			}
			fmt.Fprintf(w, "  - %s in %s: %s%s\n", p.Name, p.In, p.Type, req)
		}
	}

	if f.RequestBody != nil {
		sectionColor.Fprintln(w, "Request body:")
		for _, ct := range sortedKeys(f.RequestBody.Content) {
			fmt.Fprintf(w, "  - %s\n", ct)
		}
	}

	sectionColor.Fprintln(w, "Responses:")
	for _, status := range sortedKeys(f.Responses) {
		c := okColor
		if strings.HasPrefix(status, "4") || strings.HasPrefix(status, "5") {
			c = badColor
		}
		c.Fprintf(w, "  %s", status)
		fmt.Fprintf(w, " %s\n", f.Responses[status].Description)
	}
}

func printOpenAPIEnvelope(w io.Writer, env *model.OpenAPIEnvelope) {
	printSource(w, env.Source, env.Note)
	if env.Source == model.SourceAI {
		printFragment(w, env.AI)
		return
	}
	printFragment(w, env.Fallback)
}

func printAuthReport(w io.Writer, r *model.AuthValidationReport) {
	headerColor.Fprintln(w, "Auth configuration review")

	sectionColor.Fprintln(w, "Unprotected routes:")
	if len(r.Leaks) == 0 {
		okColor.Fprintln(w, "  (none)")
	}
	for _, l := range r.Leaks {
		levelColor(string(l.Severity)).Fprintf(w, "  [%s]", l.Severity)
		fmt.Fprintf(w, " %s %s\n", l.Method, l.Route)
	}

	sectionColor.Fprintln(w, "Role mismatches:")
	if len(r.Mismatches) == 0 {
		okColor.Fprintln(w, "  (none)")
	}
	for _, m := range r.Mismatches {
		warnColor.Fprintf(w, "  %s %s", m.Method, m.Route)
		fmt.Fprintf(w, " requires %s, middleware grants %s\n",
			strings.Join(m.RequiredRoles, ", "), strings.Join(m.AssignedRoles, ", "))
	}

	printList(w, "Suggestions", r.Suggestions, okColor)
}

func printAuthEnvelope(w io.Writer, env *model.AuthEnvelope) {
	printSource(w, env.Source, env.Note)

	review := env.Fallback
	if env.Source == model.SourceAI {
		review = env.AI
	}

	headerColor.Fprintln(w, "Auth flow review")
	fmt.Fprint(w, "Risk: ")
	levelColor(string(review.RiskLevel)).Fprintln(w, review.RiskLevel)
	printList(w, "Vulnerabilities", review.Vulnerabilities, badColor)
	printList(w, "Recommendations", review.Recommendations, okColor)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
