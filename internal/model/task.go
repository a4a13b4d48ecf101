// Package model defines the domain types shared across Tenderscope:
// the investigation-task catalog, per-task verdicts, tender metadata,
// observation events, and the yaml configuration schema.
package model

// Severity classifies how damaging a compliance failure for a task would be.
// Values are ordered: Low < Medium < High < Critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank returns the ordinal position of the severity, or -1 for unknown values.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is as severe as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// InvestigationTask is one entry of the static compliance-validation catalog.
// Tasks are loaded once at process start and never mutated; adding or removing
// a task requires a redeploy.
type InvestigationTask struct {
	ID          int      `json:"id" yaml:"id"`
	Code        string   `json:"code" yaml:"code"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	WhereToLook string   `json:"where_to_look" yaml:"where_to_look"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Subtasks    []string `json:"subtasks" yaml:"subtasks"`
}
