package analyzer

import (
	"slices"
	"strings"

	"github.com/kolah/codepilot/internal/model"
)

const (
	SuggestionAddMiddleware = "Add authentication middleware to unprotected routes"
	SuggestionReviewRoles   = "Review role assignments for route protection"
)

// ValidateAuth reports routes without middleware (leaks) and routes whose
// middleware grants none of the required roles (mismatches).
//
// RoleHierarchy is not consulted: a role only satisfies a requirement when
// the middleware grants it by name.
func ValidateAuth(cfg model.AuthConfig) *model.AuthValidationReport {
	report := &model.AuthValidationReport{
		Leaks:       []model.Leak{},
		Mismatches:  []model.Mismatch{},
		Suggestions: []string{},
	}

	for _, r := range cfg.Routes {
		if len(r.Middleware) > 0 {
			continue
		}
		severity := model.SeverityMedium
		if strings.Contains(r.Path, "/api/") {
			severity = model.SeverityHigh
		}
		report.Leaks = append(report.Leaks, model.Leak{
			Route:    r.Path,
			Method:   r.Method,
			Severity: severity,
		})
	}

	for _, r := range cfg.Routes {
		if r.Roles == nil || r.Middleware == nil {
			continue
		}
		// One entry per offending middleware reference; a route listing
		// the same middleware twice is reported twice.
		for _, mw := range r.Middleware {
			granted, ok := cfg.Middleware[mw]
			if !ok || granted == nil {
				continue
			}
			if !grantsAny(granted, r.Roles) {
				report.Mismatches = append(report.Mismatches, model.Mismatch{
					Route:         r.Path,
					Method:        r.Method,
					RequiredRoles: r.Roles,
					AssignedRoles: granted,
				})
			}
		}
	}

	if len(report.Leaks) > 0 {
		report.Suggestions = append(report.Suggestions, SuggestionAddMiddleware)
	}
	if len(report.Mismatches) > 0 {
		report.Suggestions = append(report.Suggestions, SuggestionReviewRoles)
	}

	return report
}

func grantsAny(granted, required []string) bool {
	for _, role := range required {
		if slices.Contains(granted, role) {
			return true
		}
	}
	return false
}
