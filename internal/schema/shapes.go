package schema

// Contracts mirrored by the types in internal/model. A change to either side
// must be reflected in the other; the conformance tests check they agree.

const stringArray = `{"type": "array", "items": {"type": "string"}}`

const analysisDoc = `{
  "type": "object",
  "required": ["complexity", "issues", "suggestions"],
  "properties": {
    "complexity": {"type": "number", "minimum": 0, "maximum": 100},
    "issues": ` + stringArray + `,
    "suggestions": ` + stringArray + `,
    "securityConcerns": ` + stringArray + `
  }
}`

const analysisReportDoc = `{
  "type": "object",
  "required": ["complexity", "validations", "suggestions"],
  "properties": {
    "complexity": {
      "type": "object",
      "required": ["score", "level", "issues"],
      "properties": {
        "score": {"type": "integer", "minimum": 0, "maximum": 100},
        "level": {"enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]},
        "issues": ` + stringArray + `
      }
    },
    "validations": {
      "type": "object",
      "required": ["missing", "present"],
      "properties": {
        "missing": ` + stringArray + `,
        "present": ` + stringArray + `
      }
    },
    "suggestions": ` + stringArray + `,
    "securityConcerns": ` + stringArray + `
  }
}`

const openAPIDoc = `{
  "type": "object",
  "required": ["method", "path", "responses"],
  "properties": {
    "method": {"enum": ["GET", "POST", "PUT", "DELETE", "PATCH"]},
    "path": {"type": "string"},
    "summary": {"type": "string"},
    "description": {"type": "string"},
    "parameters": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "in", "required", "type"],
        "properties": {
          "name": {"type": "string"},
          "in": {"enum": ["query", "path", "header", "cookie"]},
          "required": {"type": "boolean"},
          "type": {"type": "string"},
          "description": {"type": "string"}
        }
      }
    },
    "requestBody": {
      "type": "object",
      "required": ["content"],
      "properties": {
        "description": {"type": "string"},
        "content": {"$ref": "#/$defs/content"}
      }
    },
    "responses": {
      "type": "object",
      "minProperties": 1,
      "propertyNames": {"pattern": "^([1-5][0-9][0-9]|default)$"},
      "additionalProperties": {
        "type": "object",
        "required": ["description"],
        "properties": {
          "description": {"type": "string"},
          "content": {"$ref": "#/$defs/content"}
        }
      }
    },
    "security": {"type": "array", "items": {"type": "object"}}
  },
  "$defs": {
    "content": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["schema"],
        "properties": {
          "schema": {"type": "object"}
        }
      }
    }
  }
}`

const authReviewDoc = `{
  "type": "object",
  "required": ["vulnerabilities", "recommendations", "riskLevel"],
  "properties": {
    "vulnerabilities": ` + stringArray + `,
    "recommendations": ` + stringArray + `,
    "riskLevel": {"enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]}
  }
}`

const authConfigDoc = `{
  "type": "object",
  "required": ["routes"],
  "properties": {
    "routes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "method"],
        "properties": {
          "path": {"type": "string"},
          "method": {"type": "string"},
          "middleware": ` + stringArray + `,
          "roles": ` + stringArray + `
        }
      }
    },
    "middleware": {"type": "object", "additionalProperties": ` + stringArray + `},
    "roleHierarchy": {"type": "object", "additionalProperties": ` + stringArray + `}
  }
}`

var (
	// AnalysisShape is what a model must return for controller analysis.
	AnalysisShape = MustShape("analysis", analysisDoc)
	// AnalysisReportShape is the rule-based controller report.
	AnalysisReportShape = MustShape("analysis-report", analysisReportDoc)
	// OpenAPIShape is an OpenAPI fragment from either path.
	OpenAPIShape = MustShape("openapi-fragment", openAPIDoc)
	// AuthReviewShape is what a model must return for an auth-flow review.
	AuthReviewShape = MustShape("auth-review", authReviewDoc)
	// AuthConfigShape is the caller-supplied route/middleware description.
	AuthConfigShape = MustShape("auth-config", authConfigDoc)
)
