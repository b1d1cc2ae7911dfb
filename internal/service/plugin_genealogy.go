package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/frankie-agent/frankie/internal/domain/finding"
	"github.com/frankie-agent/frankie/internal/domain/task"
	"github.com/frankie-agent/frankie/internal/port/database"
	"github.com/frankie-agent/frankie/internal/port/llm"
	"github.com/frankie-agent/frankie/internal/port/plugin"
)

// GenealogyID selects the research plugin.
const GenealogyID = "genealogy_researcher"

// GenealogyPlugin researches a person's recorded data and proposes findings.
// It shares the two-outcome review gate of the code modifier: nothing is
// accepted into the record without an explicit decision, per finding or for
// the whole task.
type GenealogyPlugin struct {
	llm   llm.Client
	store database.Store
}

// NewGenealogyPlugin wires the researcher to the LLM port and the finding store.
func NewGenealogyPlugin(llmClient llm.Client, store database.Store) *GenealogyPlugin {
	return &GenealogyPlugin{llm: llmClient, store: store}
}

func (p *GenealogyPlugin) ID() string   { return GenealogyID }
func (p *GenealogyPlugin) Name() string { return "Genealogy Researcher" }
func (p *GenealogyPlugin) Description() string {
	return "Researches a person's records and proposes cited data corrections for review."
}

func (p *GenealogyPlugin) Graph() plugin.Graph {
	return plugin.Graph{
		Start: task.StatusAnalyzing,
		Decisions: map[plugin.Edge]task.Status{
			{From: task.StatusAwaitingReview, Action: task.ActionApprove}: task.StatusApplied,
			{From: task.StatusAwaitingReview, Action: task.ActionReject}:  task.StatusRejected,
		},
	}
}

// findingResponse is the strict JSON shape requested from the LLM.
type findingResponse struct {
	Summary  string `json:"summary"`
	Findings []struct {
		DataField       string  `json:"data_field"`
		OriginalValue   string  `json:"original_value"`
		SuggestedValue  string  `json:"suggested_value"`
		ConfidenceScore float64 `json:"confidence_score"`
		SourceName      string  `json:"source_name"`
		CitationText    string  `json:"citation_text"`
	} `json:"findings"`
}

func (p *GenealogyPlugin) Handle(ctx context.Context, t *task.Task, ev plugin.Event) (plugin.Update, error) {
	if ev.Kind == plugin.EventDecision {
		return p.handleDecision(ctx, t, ev.Decision)
	}

	switch t.Status {
	case task.StatusPending, task.StatusAnalyzing:
		return p.research(ctx, t)
	default:
		return plugin.Update{}, fmt.Errorf("genealogy researcher cannot advance from status %s", t.Status)
	}
}

func (p *GenealogyPlugin) handleDecision(ctx context.Context, t *task.Task, d task.Decision) (plugin.Update, error) {
	switch d.Action {
	case task.ActionApprove:
		if err := p.store.UpdateFindingStatusByTask(ctx, t.ID, finding.StatusAccepted); err != nil {
			return plugin.Update{}, fmt.Errorf("accept findings: %w", err)
		}
		return plugin.Update{Status: task.StatusApplied}, nil
	case task.ActionReject:
		if err := p.store.UpdateFindingStatusByTask(ctx, t.ID, finding.StatusRejected); err != nil {
			return plugin.Update{}, fmt.Errorf("reject findings: %w", err)
		}
		return plugin.Update{Status: task.StatusRejected}, nil
	default:
		return plugin.Update{}, fmt.Errorf("genealogy researcher does not handle action %q", d.Action)
	}
}

func (p *GenealogyPlugin) research(ctx context.Context, t *task.Task) (plugin.Update, error) {
	if t.TargetPersonID == "" {
		return plugin.Update{}, fmt.Errorf("no target person given")
	}

	var resp findingResponse
	if err := p.llm.GenerateJSON(ctx, buildResearchPrompt(t.Prompt, t.TargetPersonID), &resp); err != nil {
		return plugin.Update{}, fmt.Errorf("llm research call: %w", err)
	}
	if len(resp.Findings) == 0 {
		return plugin.Update{}, fmt.Errorf("research produced no findings")
	}

	findings := make([]finding.Finding, 0, len(resp.Findings))
	for _, f := range resp.Findings {
		if f.DataField == "" || f.SuggestedValue == "" {
			continue
		}
		findings = append(findings, finding.Finding{
			TaskID:          t.ID,
			PersonID:        t.TargetPersonID,
			DataField:       f.DataField,
			OriginalValue:   f.OriginalValue,
			SuggestedValue:  f.SuggestedValue,
			ConfidenceScore: f.ConfidenceScore,
			SourceName:      f.SourceName,
			CitationText:    f.CitationText,
			Status:          finding.StatusUnverified,
		})
	}
	if len(findings) == 0 {
		return plugin.Update{}, fmt.Errorf("research produced no usable findings")
	}

	explanation := resp.Summary
	if explanation == "" {
		explanation = fmt.Sprintf("%d candidate findings for person %s await review.", len(findings), t.TargetPersonID)
	}

	return plugin.Update{
		Status:         task.StatusAwaitingReview,
		LLMExplanation: explanation,
		Findings:       findings,
	}, nil
}

func buildResearchPrompt(prompt, personID string) string {
	var sb strings.Builder
	sb.WriteString("You are a genealogy research assistant. Research the person identified below\n")
	sb.WriteString("and propose corrections or additions to their recorded data, each backed by a\n")
	sb.WriteString("named source and citation. Respond with STRICT JSON only, shaped as\n")
	sb.WriteString(`{"summary": "...markdown...", "findings": [{"data_field": "...", "original_value": "...", ` +
		`"suggested_value": "...", "confidence_score": 0.0, "source_name": "...", "citation_text": "..."}]}`)
	sb.WriteString("\n\nPerson id: ")
	sb.WriteString(personID)
	sb.WriteString("\nResearch request: ")
	sb.WriteString(prompt)
	return sb.String()
}
