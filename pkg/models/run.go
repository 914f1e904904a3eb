package models

import "time"

// Run outcome labels
const (
	RunStatusCompleted   = "completed"
	RunStatusInterrupted = "interrupted"
)

// RunSummary describes one pipeline run. An interrupted run carries partial
// results.
type RunSummary struct {
	ID                   string    `json:"id" db:"id"`
	Status               string    `json:"status" db:"status"`
	StartedAt            time.Time `json:"started_at" db:"started_at"`
	CompletedAt          time.Time `json:"completed_at" db:"completed_at"`
	InputCount           int       `json:"input_count" db:"input_count"`
	EntityCount          int       `json:"entity_count" db:"entity_count"`
	ResolvedReferences   int       `json:"resolved_references" db:"resolved_references"`
	UnresolvedReferences int       `json:"unresolved_references" db:"unresolved_references"`
}

// Interrupted reports whether the run stopped before every stage finished
func (r RunSummary) Interrupted() bool {
	return r.Status == RunStatusInterrupted
}
