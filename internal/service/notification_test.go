package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/frankie-agent/frankie/internal/domain/task"
	"github.com/frankie-agent/frankie/internal/port/notifier"
)

// recordingNotifier captures notifications on a channel and optionally fails.
type recordingNotifier struct {
	sent chan notifier.Notification
	err  error
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Send(_ context.Context, msg notifier.Notification) error {
	n.sent <- msg
	return n.err
}

func newNotificationService(notifiers ...notifier.Notifier) *NotificationService {
	return &NotificationService{notifiers: notifiers, enabled: map[string]bool{}}
}

func TestTaskTransitionNotifiesReviewGate(t *testing.T) {
	rec := &recordingNotifier{sent: make(chan notifier.Notification, 1)}
	svc := newNotificationService(rec)

	svc.TaskTransition(&task.Task{
		ID:         "task-1",
		PluginID:   "code_modifier",
		Status:     task.StatusAwaitingReview,
		TestStatus: task.TestFail,
	})

	select {
	case n := <-rec.sent:
		if n.Level != "warning" {
			t.Fatalf("level = %q, want warning for failed tests", n.Level)
		}
		if n.TaskID != "task-1" {
			t.Fatalf("task id = %q", n.TaskID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a notification for awaiting_review")
	}
}

func TestTaskTransitionSilentOnInternalStatus(t *testing.T) {
	rec := &recordingNotifier{sent: make(chan notifier.Notification, 1)}
	svc := newNotificationService(rec)

	svc.TaskTransition(&task.Task{ID: "task-2", Status: task.StatusAnalyzing})

	select {
	case n := <-rec.sent:
		t.Fatalf("unexpected notification for internal status: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTaskTransitionFailureIsSwallowed(t *testing.T) {
	rec := &recordingNotifier{
		sent: make(chan notifier.Notification, 1),
		err:  errors.New("webhook down"),
	}
	svc := newNotificationService(rec)

	before := &task.Task{ID: "task-3", Status: task.StatusError, ErrorMessage: "boom", Version: 4}
	svc.TaskTransition(before)

	select {
	case <-rec.sent:
	case <-time.After(time.Second):
		t.Fatal("expected the failing notifier to be invoked")
	}
	// Delivery failure must not touch the task.
	if before.Status != task.StatusError || before.Version != 4 {
		t.Fatalf("task mutated by notification failure: %+v", before)
	}
}

func TestTaskTransitionRespectsEnabledEvents(t *testing.T) {
	rec := &recordingNotifier{sent: make(chan notifier.Notification, 1)}
	svc := newNotificationService(rec)
	svc.enabled["task.error"] = true

	svc.TaskTransition(&task.Task{ID: "task-4", Status: task.StatusApplied})

	select {
	case n := <-rec.sent:
		t.Fatalf("applied should be filtered out, got %+v", n)
	case <-time.After(50 * time.Millisecond):
	}

	svc.TaskTransition(&task.Task{ID: "task-4", Status: task.StatusError, ErrorMessage: "x"})
	select {
	case <-rec.sent:
	case <-time.After(time.Second):
		t.Fatal("expected error transition to pass the filter")
	}
}
