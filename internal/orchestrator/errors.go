package orchestrator

import "fmt"

// FaultError is a rule-based analyzer that panicked instead of returning.
type FaultError struct {
	Op    string
	Value any
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s analyzer failed: %v", e.Op, e.Value)
}
