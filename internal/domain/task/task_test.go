package task

import (
	"encoding/json"
	"testing"
)

func TestStatusIsReview(t *testing.T) {
	review := []Status{StatusAwaitingReview, StatusAwaitingPlanReview, StatusAwaitingMilestoneReview}
	for _, s := range review {
		if !s.IsReview() {
			t.Errorf("%s should be a review gate", s)
		}
	}

	other := []Status{StatusPending, StatusAnalyzing, StatusTesting, StatusApplied, StatusError}
	for _, s := range other {
		if s.IsReview() {
			t.Errorf("%s should not be a review gate", s)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []Status{StatusApplied, StatusRejected, StatusCompleted, StatusError}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	if StatusAwaitingReview.IsTerminal() {
		t.Error("awaiting_review must not be terminal")
	}
	if StatusExecutingMilestone.IsTerminal() {
		t.Error("executing_milestone must not be terminal")
	}
}

func TestActionValid(t *testing.T) {
	for _, a := range []Action{ActionApprove, ActionReject, ActionSkip, ActionReplan, ActionStop} {
		if !a.Valid() {
			t.Errorf("%s should be valid", a)
		}
	}
	if Action("resume").Valid() {
		t.Error("unknown action accepted")
	}
	if Action("").Valid() {
		t.Error("empty action accepted")
	}
}

func TestContextRoundTrip(t *testing.T) {
	// The context blob must survive a marshal/unmarshal of the surrounding
	// task without being re-serialized (key order and spacing preserved).
	raw := json.RawMessage(`{"plan":{"project_title":"x"},"current_milestone_index":-1}`)
	tk := Task{ID: "t1", Context: raw}

	data, err := json.Marshal(tk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Task
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(back.Context) != string(raw) {
		t.Fatalf("context not preserved: %s", back.Context)
	}
}
