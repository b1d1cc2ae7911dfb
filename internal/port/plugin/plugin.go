// Package plugin defines the execution contract between the orchestrator and
// the capability plugins. Each plugin declares its phase graph as an explicit
// edge table; the orchestrator owns every status mutation and uses the table
// to validate admin decisions before a handler ever runs.
package plugin

import (
	"context"
	"encoding/json"

	"github.com/frankie-agent/frankie/internal/domain/finding"
	"github.com/frankie-agent/frankie/internal/domain/task"
)

// Event kinds delivered to Handle.
const (
	// EventStart drives a freshly created task out of pending, and every
	// subsequent auto-advance of a non-review, non-terminal phase.
	EventStart = "start"
	// EventDecision resumes a task suspended at a review gate.
	EventDecision = "decision"
)

// Event is the input to one phase-handler invocation.
type Event struct {
	Kind     string
	Decision task.Decision // valid only when Kind == EventDecision
}

// Name returns the audit-trail label for the event.
func (e Event) Name() string {
	if e.Kind == EventDecision {
		return string(e.Decision.Action)
	}
	return EventStart
}

// Edge is one legal (review status, decision action) pair.
type Edge struct {
	From   task.Status
	Action task.Action
}

// Graph is a plugin's compile-time phase table. Start names the first working
// phase entered from pending; Decisions maps each legal admin decision to the
// status the handler is expected to produce.
type Graph struct {
	Start     task.Status
	Decisions map[Edge]task.Status
}

// Allows reports whether the decision action is legal in the given status.
func (g Graph) Allows(from task.Status, action task.Action) bool {
	_, ok := g.Decisions[Edge{From: from, Action: action}]
	return ok
}

// Update is what a phase handler returns. The orchestrator persists it
// atomically with the status change; a handler never writes the store itself.
// Context replaces the task's context blob when non-nil; string fields are
// applied when non-empty.
type Update struct {
	Status         task.Status
	Context        json.RawMessage
	LLMExplanation string
	ProposedDiff   string
	TestStatus     task.TestStatus
	TestResults    string
	CommitHash     string
	ErrorMessage   string
	// Findings produced by this phase, persisted alongside the task update.
	Findings []finding.Finding
}

// Plugin is one capability implementation: a phase graph plus a handler that
// performs the work of the task's current phase. Handlers may block on the
// LLM or on subprocesses; the orchestrator bounds them with a deadline and
// converts any error or panic into the error status.
type Plugin interface {
	ID() string
	Name() string
	Description() string
	Graph() Graph
	Handle(ctx context.Context, t *task.Task, ev Event) (Update, error)
}

// Info is the UI-facing description of a registered plugin.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
