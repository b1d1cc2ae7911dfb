// Package plan defines the Odyssey planner's project plan and milestone log.
// A plan lives inside the owning task's opaque context blob; the orchestrator
// never looks at it.
package plan

import (
	"encoding/json"
	"fmt"
)

// Milestone is one independently reviewable step of a plan.
type Milestone struct {
	MilestoneID       string   `json:"milestone_id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	EstimatedSubSteps []string `json:"estimated_sub_steps,omitempty"`
	PotentialTools    []string `json:"potential_tools,omitempty"`
}

// Plan is the LLM-produced decomposition of a high-level goal.
type Plan struct {
	ProjectTitle        string      `json:"project_title"`
	OverallSummary      string      `json:"overall_summary"`
	ClarifyingQuestions []string    `json:"clarifying_questions,omitempty"`
	Milestones          []Milestone `json:"milestones"`
}

// Validate checks the structural invariants of an LLM-produced plan.
func (p *Plan) Validate() error {
	if p.ProjectTitle == "" {
		return fmt.Errorf("plan missing project_title")
	}
	if len(p.Milestones) == 0 {
		return fmt.Errorf("plan has no milestones")
	}
	for i, m := range p.Milestones {
		if m.Name == "" {
			return fmt.Errorf("milestone %d missing name", i)
		}
	}
	return nil
}

// Log statuses for executed milestones.
const (
	LogCompleted = "completed"
	LogSkipped   = "skipped"
)

// MilestoneLog records the outcome of one milestone execution.
type MilestoneLog struct {
	MilestoneID string `json:"milestone_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	ToolUsed    string `json:"tool_used,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Context is the Odyssey plugin's private task context. CurrentMilestoneIndex
// is -1 until the plan is approved and strictly non-decreasing afterwards,
// except on replan, which resets the whole context.
type Context struct {
	Plan                  *Plan          `json:"plan,omitempty"`
	CurrentMilestoneIndex int            `json:"current_milestone_index"`
	MilestoneLogs         []MilestoneLog `json:"milestone_logs,omitempty"`
	FinalReport           string         `json:"final_report,omitempty"`
}

// NewContext returns an empty context with the milestone index unset.
func NewContext() *Context {
	return &Context{CurrentMilestoneIndex: -1}
}

// ParseContext decodes a task context blob. An empty blob yields a fresh context.
func ParseContext(raw json.RawMessage) (*Context, error) {
	if len(raw) == 0 {
		return NewContext(), nil
	}
	var c Context
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse odyssey context: %w", err)
	}
	return &c, nil
}

// Encode serializes the context back into a task context blob.
func (c *Context) Encode() (json.RawMessage, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode odyssey context: %w", err)
	}
	return data, nil
}
