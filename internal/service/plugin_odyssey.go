package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/frankie-agent/frankie/internal/domain/plan"
	"github.com/frankie-agent/frankie/internal/domain/task"
	"github.com/frankie-agent/frankie/internal/port/llm"
	"github.com/frankie-agent/frankie/internal/port/plugin"
)

// OdysseyID selects the autonomous planner plugin.
const OdysseyID = "odyssey_agent"

// OdysseyPlugin decomposes an open-ended goal into a reviewable plan and
// executes it milestone by milestone, suspending for an admin decision after
// the plan and after every milestone. Milestones run strictly in order.
type OdysseyPlugin struct {
	llm llm.Client
}

// NewOdysseyPlugin wires the planner to the LLM port.
func NewOdysseyPlugin(llmClient llm.Client) *OdysseyPlugin {
	return &OdysseyPlugin{llm: llmClient}
}

func (p *OdysseyPlugin) ID() string   { return OdysseyID }
func (p *OdysseyPlugin) Name() string { return "Odyssey Agent" }
func (p *OdysseyPlugin) Description() string {
	return "Plans and executes a multi-step goal with a review gate after every milestone."
}

func (p *OdysseyPlugin) Graph() plugin.Graph {
	return plugin.Graph{
		Start: task.StatusPlanning,
		Decisions: map[plugin.Edge]task.Status{
			{From: task.StatusAwaitingPlanReview, Action: task.ActionApprove}: task.StatusExecutingMilestone,
			{From: task.StatusAwaitingPlanReview, Action: task.ActionReplan}:  task.StatusPlanning,
			{From: task.StatusAwaitingPlanReview, Action: task.ActionStop}:    task.StatusRejected,

			{From: task.StatusAwaitingMilestoneReview, Action: task.ActionApprove}: task.StatusExecutingMilestone,
			{From: task.StatusAwaitingMilestoneReview, Action: task.ActionSkip}:    task.StatusExecutingMilestone,
			{From: task.StatusAwaitingMilestoneReview, Action: task.ActionReplan}:  task.StatusPlanning,
			{From: task.StatusAwaitingMilestoneReview, Action: task.ActionStop}:    task.StatusRejected,
		},
	}
}

func (p *OdysseyPlugin) Handle(ctx context.Context, t *task.Task, ev plugin.Event) (plugin.Update, error) {
	if ev.Kind == plugin.EventDecision {
		return p.handleDecision(t, ev.Decision)
	}

	switch t.Status {
	case task.StatusPending, task.StatusPlanning:
		return p.generatePlan(ctx, t)
	case task.StatusExecutingMilestone:
		return p.executeMilestone(ctx, t)
	case task.StatusFinalizing:
		return p.finalize(t)
	default:
		return plugin.Update{}, fmt.Errorf("odyssey cannot advance from status %s", t.Status)
	}
}

func (p *OdysseyPlugin) handleDecision(t *task.Task, d task.Decision) (plugin.Update, error) {
	pc, err := plan.ParseContext(t.Context)
	if err != nil {
		return plugin.Update{}, err
	}

	switch d.Action {
	case task.ActionStop:
		return plugin.Update{Status: task.StatusRejected}, nil

	case task.ActionReplan:
		// Replan preserves none of the progress: plan, logs and index all reset.
		blob, err := plan.NewContext().Encode()
		if err != nil {
			return plugin.Update{}, err
		}
		return plugin.Update{Status: task.StatusPlanning, Context: blob}, nil

	case task.ActionApprove, task.ActionSkip:
		if t.Status == task.StatusAwaitingPlanReview {
			pc.CurrentMilestoneIndex = 0
			blob, err := pc.Encode()
			if err != nil {
				return plugin.Update{}, err
			}
			return plugin.Update{Status: task.StatusExecutingMilestone, Context: blob}, nil
		}
		return p.advanceMilestone(pc, d.Action)

	default:
		return plugin.Update{}, fmt.Errorf("odyssey does not handle action %q", d.Action)
	}
}

// advanceMilestone applies an approve or skip decision at milestone review:
// the just-executed milestone's log keeps completed on approve and is marked
// skipped on skip, then the index moves forward. Past the last milestone the
// task finalizes.
func (p *OdysseyPlugin) advanceMilestone(pc *plan.Context, action task.Action) (plugin.Update, error) {
	if pc.Plan == nil || pc.CurrentMilestoneIndex < 0 {
		return plugin.Update{}, fmt.Errorf("milestone decision without an approved plan")
	}
	if action == task.ActionSkip && len(pc.MilestoneLogs) > 0 {
		pc.MilestoneLogs[len(pc.MilestoneLogs)-1].Status = plan.LogSkipped
	}

	pc.CurrentMilestoneIndex++
	next := task.StatusExecutingMilestone
	if pc.CurrentMilestoneIndex >= len(pc.Plan.Milestones) {
		next = task.StatusFinalizing
	}

	blob, err := pc.Encode()
	if err != nil {
		return plugin.Update{}, err
	}
	return plugin.Update{Status: next, Context: blob}, nil
}

func (p *OdysseyPlugin) generatePlan(ctx context.Context, t *task.Task) (plugin.Update, error) {
	var newPlan plan.Plan
	if err := p.llm.GenerateJSON(ctx, buildPlanPrompt(t.Prompt), &newPlan); err != nil {
		return plugin.Update{}, fmt.Errorf("llm planning call: %w", err)
	}
	if err := newPlan.Validate(); err != nil {
		return plugin.Update{}, fmt.Errorf("llm returned an unusable plan: %w", err)
	}

	pc := plan.NewContext()
	pc.Plan = &newPlan
	blob, err := pc.Encode()
	if err != nil {
		return plugin.Update{}, err
	}

	return plugin.Update{
		Status:         task.StatusAwaitingPlanReview,
		Context:        blob,
		LLMExplanation: newPlan.OverallSummary,
	}, nil
}

func (p *OdysseyPlugin) executeMilestone(ctx context.Context, t *task.Task) (plugin.Update, error) {
	pc, err := plan.ParseContext(t.Context)
	if err != nil {
		return plugin.Update{}, err
	}
	if pc.Plan == nil {
		return plugin.Update{}, fmt.Errorf("executing without a plan")
	}
	idx := pc.CurrentMilestoneIndex
	if idx < 0 || idx >= len(pc.Plan.Milestones) {
		return plugin.Update{}, fmt.Errorf("milestone index %d out of range (plan has %d)", idx, len(pc.Plan.Milestones))
	}

	m := pc.Plan.Milestones[idx]
	notes, err := p.llm.Generate(ctx, buildMilestonePrompt(t.Prompt, m))
	if err != nil {
		return plugin.Update{}, fmt.Errorf("llm milestone call: %w", err)
	}

	tool := ""
	if len(m.PotentialTools) > 0 {
		tool = m.PotentialTools[0]
	}
	pc.MilestoneLogs = append(pc.MilestoneLogs, plan.MilestoneLog{
		MilestoneID: m.MilestoneID,
		Name:        m.Name,
		Status:      plan.LogCompleted,
		ToolUsed:    tool,
		Notes:       notes,
	})

	blob, err := pc.Encode()
	if err != nil {
		return plugin.Update{}, err
	}
	return plugin.Update{
		Status:         task.StatusAwaitingMilestoneReview,
		Context:        blob,
		LLMExplanation: fmt.Sprintf("Milestone %d/%d (%s) finished.", idx+1, len(pc.Plan.Milestones), m.Name),
	}, nil
}

// finalize aggregates the milestone logs into a final report. Pure string
// assembly, no external call, so it never needs a review gate of its own.
func (p *OdysseyPlugin) finalize(t *task.Task) (plugin.Update, error) {
	pc, err := plan.ParseContext(t.Context)
	if err != nil {
		return plugin.Update{}, err
	}
	if pc.Plan == nil {
		return plugin.Update{}, fmt.Errorf("finalizing without a plan")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n%s\n\n## Milestones\n\n", pc.Plan.ProjectTitle, pc.Plan.OverallSummary)
	for i, log := range pc.MilestoneLogs {
		fmt.Fprintf(&sb, "%d. %s — %s\n", i+1, log.Name, log.Status)
		if log.Notes != "" {
			fmt.Fprintf(&sb, "   %s\n", strings.ReplaceAll(strings.TrimSpace(log.Notes), "\n", "\n   "))
		}
	}

	pc.FinalReport = sb.String()
	blob, err := pc.Encode()
	if err != nil {
		return plugin.Update{}, err
	}
	return plugin.Update{
		Status:         task.StatusCompleted,
		Context:        blob,
		LLMExplanation: pc.FinalReport,
	}, nil
}

func buildPlanPrompt(prompt string) string {
	var sb strings.Builder
	sb.WriteString("Decompose the following goal into an ordered project plan.\n")
	sb.WriteString("Respond with STRICT JSON only, shaped as\n")
	sb.WriteString(`{"project_title": "...", "overall_summary": "...", "clarifying_questions": ["..."], ` +
		`"milestones": [{"milestone_id": "m1", "name": "...", "description": "...", ` +
		`"estimated_sub_steps": ["..."], "potential_tools": ["..."]}]}`)
	sb.WriteString("\n\nGoal: ")
	sb.WriteString(prompt)
	return sb.String()
}

func buildMilestonePrompt(goal string, m plan.Milestone) string {
	var sb strings.Builder
	sb.WriteString("You are executing one milestone of a larger goal.\n")
	sb.WriteString("Overall goal: ")
	sb.WriteString(goal)
	sb.WriteString("\nMilestone: ")
	sb.WriteString(m.Name)
	sb.WriteString("\nDescription: ")
	sb.WriteString(m.Description)
	if len(m.EstimatedSubSteps) > 0 {
		sb.WriteString("\nSub-steps: ")
		sb.WriteString(strings.Join(m.EstimatedSubSteps, "; "))
	}
	sb.WriteString("\n\nCarry out the milestone and report what was done, any results, and anything a reviewer should check.")
	return sb.String()
}
