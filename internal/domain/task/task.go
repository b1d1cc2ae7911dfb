// Package task defines the Task domain entity and its state machine vocabulary.
package task

import (
	"encoding/json"
	"time"
)

// Status represents the current phase of a task's state machine.
type Status string

const (
	StatusPending            Status = "pending"
	StatusPlanning           Status = "planning"
	StatusAnalyzing          Status = "analyzing"
	StatusTesting            Status = "testing"
	StatusExecutingMilestone Status = "executing_milestone"
	StatusFinalizing         Status = "finalizing"

	// Review gates: the machine suspends here until an admin decision arrives.
	StatusAwaitingReview          Status = "awaiting_review"
	StatusAwaitingPlanReview      Status = "awaiting_plan_review"
	StatusAwaitingMilestoneReview Status = "awaiting_milestone_review"

	// Terminal states.
	StatusApplied   Status = "applied"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// IsReview reports whether the status is a human review gate.
func (s Status) IsReview() bool {
	switch s {
	case StatusAwaitingReview, StatusAwaitingPlanReview, StatusAwaitingMilestoneReview:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are accepted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApplied, StatusRejected, StatusCompleted, StatusError:
		return true
	}
	return false
}

// TestStatus records the outcome of the sandbox test stage.
type TestStatus string

const (
	TestNotRun TestStatus = "not_run"
	TestPass   TestStatus = "pass"
	TestFail   TestStatus = "fail"
)

// Action is an admin decision verb submitted against a review gate.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionSkip    Action = "skip"
	ActionReplan  Action = "replan"
	ActionStop    Action = "stop"
)

// Valid reports whether the action is one of the known decision verbs.
func (a Action) Valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionSkip, ActionReplan, ActionStop:
		return true
	}
	return false
}

// Decision is the admin input that resumes a suspended task.
// ExpectedVersion implements optimistic concurrency: a decision against a
// stale version is rejected rather than silently last-write-wins.
type Decision struct {
	Action               Action `json:"action"`
	OverrideFailingTests bool   `json:"override_failing_tests,omitempty"`
	ExpectedVersion      int    `json:"expected_version"`
}

// Task is one delegated unit of agent work with its own state machine instance.
// Context is opaque to everything except the owning plugin and must round-trip
// through the store byte-for-byte.
type Task struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	PluginID       string          `json:"plugin_id"`
	Prompt         string          `json:"prompt"`
	TargetFiles    []string        `json:"target_files,omitempty"`
	TargetPersonID string          `json:"target_person_id,omitempty"`
	Status         Status          `json:"status"`
	LLMExplanation string          `json:"llm_explanation,omitempty"`
	ProposedDiff   string          `json:"proposed_diff,omitempty"`
	TestStatus     TestStatus      `json:"test_status"`
	TestResults    string          `json:"test_results,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CommitHash     string          `json:"commit_hash,omitempty"`
	Context        json.RawMessage `json:"task_context_data,omitempty"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a new task.
type CreateRequest struct {
	PluginID       string   `json:"plugin_id"`
	Prompt         string   `json:"prompt"`
	TargetFiles    []string `json:"target_files,omitempty"`
	TargetPersonID string   `json:"target_person_id,omitempty"`
}

// HistoryEntry is one row of the append-only transition audit trail.
// A row is written in the same transaction as every status change.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"task_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	Event      string    `json:"event"` // "start" or the decision action
	Decision   Action    `json:"decision,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
