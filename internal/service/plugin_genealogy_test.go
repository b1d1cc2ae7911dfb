package service

import (
	"context"
	"strings"
	"testing"

	"github.com/frankie-agent/frankie/internal/domain/finding"
	"github.com/frankie-agent/frankie/internal/domain/task"
)

const genealogyFindingsJSON = `{
	"summary": "Two corrections found in parish records.",
	"findings": [
		{"data_field": "birth_date", "original_value": "1890", "suggested_value": "1889-03-12",
		 "confidence_score": 0.92, "source_name": "Parish register", "citation_text": "Vol. 3, p. 41"},
		{"data_field": "birth_place", "original_value": "", "suggested_value": "Bergen, Norway",
		 "confidence_score": 0.71, "source_name": "Census 1900", "citation_text": "District 7, line 23"}
	]
}`

func newGenealogyHarness(t *testing.T, llm *mockLLM) (*Orchestrator, *mockStore) {
	t.Helper()
	store := newMockStore()
	return newOrchestratorOn(t, store, NewGenealogyPlugin(llm, store)), store
}

func TestGenealogyFindingsAwaitReview(t *testing.T) {
	llm := &mockLLM{responses: []string{genealogyFindingsJSON}}
	o, store := newGenealogyHarness(t, llm)

	created, err := o.CreateTask(context.Background(),
		task.CreateRequest{PluginID: GenealogyID, Prompt: "verify birth record", TargetPersonID: "person-42"}, "admin")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got := waitForStatus(t, store, created.ID, task.StatusAwaitingReview)
	if !strings.Contains(got.LLMExplanation, "parish records") {
		t.Fatalf("expected research summary, got %q", got.LLMExplanation)
	}

	findings, err := store.ListFindingsByTask(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("ListFindingsByTask: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected 2 persisted findings, got %d", len(findings))
	}
	for _, f := range findings {
		if f.Status != finding.StatusUnverified {
			t.Fatalf("finding %s persisted as %s, want unverified", f.DataField, f.Status)
		}
		if f.PersonID != "person-42" {
			t.Fatalf("finding bound to person %q", f.PersonID)
		}
	}
}

func TestGenealogyApproveAcceptsFindings(t *testing.T) {
	llm := &mockLLM{responses: []string{genealogyFindingsJSON}}
	o, store := newGenealogyHarness(t, llm)

	created, _ := o.CreateTask(context.Background(),
		task.CreateRequest{PluginID: GenealogyID, Prompt: "verify", TargetPersonID: "person-42"}, "admin")
	got := waitForStatus(t, store, created.ID, task.StatusAwaitingReview)

	updated, err := o.Decide(context.Background(), got.ID,
		task.Decision{Action: task.ActionApprove, ExpectedVersion: got.Version})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if updated.Status != task.StatusApplied {
		t.Fatalf("expected applied, got %s", updated.Status)
	}

	findings, _ := store.ListFindingsByTask(context.Background(), created.ID)
	for _, f := range findings {
		if f.Status != finding.StatusAccepted {
			t.Fatalf("finding %s is %s after approval", f.DataField, f.Status)
		}
		if f.ReviewedAt == nil {
			t.Fatalf("finding %s has no review timestamp", f.DataField)
		}
	}
}

func TestGenealogyRejectDiscardsFindings(t *testing.T) {
	llm := &mockLLM{responses: []string{genealogyFindingsJSON}}
	o, store := newGenealogyHarness(t, llm)

	created, _ := o.CreateTask(context.Background(),
		task.CreateRequest{PluginID: GenealogyID, Prompt: "verify", TargetPersonID: "person-42"}, "admin")
	got := waitForStatus(t, store, created.ID, task.StatusAwaitingReview)

	updated, err := o.Decide(context.Background(), got.ID,
		task.Decision{Action: task.ActionReject, ExpectedVersion: got.Version})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if updated.Status != task.StatusRejected {
		t.Fatalf("expected rejected, got %s", updated.Status)
	}

	findings, _ := store.ListFindingsByTask(context.Background(), created.ID)
	for _, f := range findings {
		if f.Status != finding.StatusRejected {
			t.Fatalf("finding %s is %s after rejection", f.DataField, f.Status)
		}
	}
}

func TestGenealogyRequiresTargetPerson(t *testing.T) {
	llm := &mockLLM{responses: []string{genealogyFindingsJSON}}
	o, store := newGenealogyHarness(t, llm)

	created, _ := o.CreateTask(context.Background(),
		task.CreateRequest{PluginID: GenealogyID, Prompt: "verify"}, "admin")

	got := waitForStatus(t, store, created.ID, task.StatusError)
	if !strings.Contains(got.ErrorMessage, "target person") {
		t.Fatalf("expected missing-person failure, got %q", got.ErrorMessage)
	}
	if n := llm.callCount(); n != 0 {
		t.Fatalf("LLM called %d times without a target person", n)
	}
}

func TestGenealogyNoUsableFindingsFailsTask(t *testing.T) {
	llm := &mockLLM{responses: []string{`{"summary":"nothing","findings":[{"data_field":"","suggested_value":""}]}`}}
	o, store := newGenealogyHarness(t, llm)

	created, _ := o.CreateTask(context.Background(),
		task.CreateRequest{PluginID: GenealogyID, Prompt: "verify", TargetPersonID: "person-42"}, "admin")

	got := waitForStatus(t, store, created.ID, task.StatusError)
	if !strings.Contains(got.ErrorMessage, "no usable findings") {
		t.Fatalf("expected unusable-findings failure, got %q", got.ErrorMessage)
	}
}
