package model

// AuthConfig describes a service's routes and the middleware protecting them.
type AuthConfig struct {
	Routes     []Route             `json:"routes" yaml:"routes"`
	Middleware map[string][]string `json:"middleware" yaml:"middleware"`
	// RoleHierarchy is accepted for forward compatibility; role implication
	// is not resolved by the validator.
	RoleHierarchy map[string][]string `json:"roleHierarchy" yaml:"roleHierarchy"`
}

type Route struct {
	Path       string   `json:"path" yaml:"path"`
	Method     string   `json:"method" yaml:"method"`
	Middleware []string `json:"middleware,omitempty" yaml:"middleware,omitempty"`
	Roles      []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

type AuthValidationReport struct {
	Leaks       []Leak     `json:"leaks" yaml:"leaks"`
	Mismatches  []Mismatch `json:"mismatches" yaml:"mismatches"`
	Suggestions []string   `json:"suggestions" yaml:"suggestions"`
}

// Leak is a route reachable without any middleware attached.
type Leak struct {
	Route    string   `json:"route" yaml:"route"`
	Method   string   `json:"method" yaml:"method"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// Mismatch is a route whose required roles are not granted by one of its
// middleware.
type Mismatch struct {
	Route         string   `json:"route" yaml:"route"`
	Method        string   `json:"method" yaml:"method"`
	RequiredRoles []string `json:"requiredRoles" yaml:"requiredRoles"`
	AssignedRoles []string `json:"assignedRoles" yaml:"assignedRoles"`
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
	// RiskUnknown is only used when no model reviewed the code.
	RiskUnknown RiskLevel = "UNKNOWN"
)

// AuthReview is the shape a model must return for an auth-flow review.
type AuthReview struct {
	Vulnerabilities []string  `json:"vulnerabilities" yaml:"vulnerabilities"`
	Recommendations []string  `json:"recommendations" yaml:"recommendations"`
	RiskLevel       RiskLevel `json:"riskLevel" yaml:"riskLevel"`
}
