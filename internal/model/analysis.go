package model

// Level buckets a complexity score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// AnalysisReport is the rule-based controller analysis.
type AnalysisReport struct {
	Complexity       Complexity  `json:"complexity" yaml:"complexity"`
	Validations      Validations `json:"validations" yaml:"validations"`
	Suggestions      []string    `json:"suggestions" yaml:"suggestions"`
	SecurityConcerns []string    `json:"securityConcerns,omitempty" yaml:"securityConcerns,omitempty"`
}

type Complexity struct {
	Score  int      `json:"score" yaml:"score"`
	Level  Level    `json:"level" yaml:"level"`
	Issues []string `json:"issues" yaml:"issues"`
}

type Validations struct {
	Missing []string `json:"missing" yaml:"missing"`
	Present []string `json:"present" yaml:"present"`
}

// AIAnalysis is the shape a model must return for controller analysis.
type AIAnalysis struct {
	Complexity       float64  `json:"complexity" yaml:"complexity"`
	Issues           []string `json:"issues" yaml:"issues"`
	Suggestions      []string `json:"suggestions" yaml:"suggestions"`
	SecurityConcerns []string `json:"securityConcerns,omitempty" yaml:"securityConcerns,omitempty"`
}
