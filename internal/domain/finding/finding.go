// Package finding defines research findings produced by the genealogy plugin.
// Findings follow the same two-outcome human review pattern as code diffs.
package finding

import "time"

// Status is the review state of a finding.
type Status string

const (
	StatusUnverified Status = "unverified"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
)

// Finding is a single suggested change to a person's recorded data,
// backed by a cited source.
type Finding struct {
	ID              string     `json:"id"`
	TaskID          string     `json:"task_id"`
	PersonID        string     `json:"person_id"`
	DataField       string     `json:"data_field"`
	OriginalValue   string     `json:"original_value,omitempty"`
	SuggestedValue  string     `json:"suggested_value"`
	ConfidenceScore float64    `json:"confidence_score"`
	SourceName      string     `json:"source_name,omitempty"`
	CitationText    string     `json:"citation_text,omitempty"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
}
