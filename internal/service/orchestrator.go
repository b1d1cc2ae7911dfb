// Package service contains the task orchestration core: the state machine
// driver, the capability plugins and the supporting admin services.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frankie-agent/frankie/internal/adapter/otel"
	"github.com/frankie-agent/frankie/internal/adapter/ws"
	"github.com/frankie-agent/frankie/internal/domain"
	"github.com/frankie-agent/frankie/internal/domain/task"
	"github.com/frankie-agent/frankie/internal/port/database"
	"github.com/frankie-agent/frankie/internal/port/messagequeue"
	"github.com/frankie-agent/frankie/internal/port/plugin"
)

const persistTimeout = 10 * time.Second

// Orchestrator is the state machine driver. It owns every status mutation:
// plugins compute updates, the orchestrator validates, persists and fans out.
// Advances are serialized per task id; a task never has two phase handlers
// running concurrently.
type Orchestrator struct {
	store          database.Store
	registry       *plugin.Registry
	handlerTimeout time.Duration

	queue    messagequeue.Queue
	hub      *ws.Hub
	notifier *NotificationService
	metrics  *otel.Metrics

	locks sync.Map // task id -> *sync.Mutex
}

// NewOrchestrator creates the driver. handlerTimeout bounds every phase
// handler invocation; a handler that exceeds it moves the task to error.
func NewOrchestrator(store database.Store, registry *plugin.Registry, handlerTimeout time.Duration) *Orchestrator {
	if handlerTimeout <= 0 {
		handlerTimeout = 5 * time.Minute
	}
	return &Orchestrator{
		store:          store,
		registry:       registry,
		handlerTimeout: handlerTimeout,
	}
}

// SetQueue attaches a message queue for task lifecycle events.
func (o *Orchestrator) SetQueue(q messagequeue.Queue) { o.queue = q }

// SetHub attaches a WebSocket hub for live status broadcasts.
func (o *Orchestrator) SetHub(h *ws.Hub) { o.hub = h }

// SetNotifier attaches the notification fan-out service.
func (o *Orchestrator) SetNotifier(n *NotificationService) { o.notifier = n }

// SetMetrics attaches the metric instruments.
func (o *Orchestrator) SetMetrics(m *otel.Metrics) { o.metrics = m }

// CreateTask validates and persists a new task, then drives it out of
// pending in the background.
func (o *Orchestrator) CreateTask(ctx context.Context, req task.CreateRequest, ownerID string) (*task.Task, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", domain.ErrValidation)
	}
	if _, ok := o.registry.Get(req.PluginID); !ok {
		return nil, fmt.Errorf("%w: unknown plugin %q", domain.ErrValidation, req.PluginID)
	}

	t, err := o.store.CreateTask(ctx, req, ownerID)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if o.metrics != nil {
		o.metrics.TasksCreated.Add(ctx, 1)
	}
	o.publish(messagequeue.SubjectTaskCreated, t)
	if o.hub != nil {
		o.hub.BroadcastEvent(ctx, ws.EventTaskCreated, ws.TaskCreatedEvent{
			TaskID: t.ID, PluginID: t.PluginID, OwnerID: t.OwnerID,
		})
	}

	slog.Info("task created", "task_id", t.ID, "plugin", t.PluginID, "owner", ownerID)
	go o.drive(t.ID)
	return t, nil
}

// Decide applies an admin decision to a task suspended at a review gate.
// The decision step runs synchronously so conflicts surface to the caller;
// any follow-up phases continue in the background. Returns the task as it
// stands after the decision step.
func (o *Orchestrator) Decide(ctx context.Context, taskID string, d task.Decision) (*task.Task, error) {
	if !d.Action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrValidation, d.Action)
	}

	mu := o.lock(taskID)
	mu.Lock()
	defer mu.Unlock()

	t, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	plug, ok := o.registry.Get(t.PluginID)
	if !ok {
		return nil, fmt.Errorf("%w: plugin %q not registered", domain.ErrValidation, t.PluginID)
	}

	if t.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: task %s already finished with status %s", domain.ErrConflict, t.ID, t.Status)
	}
	if !t.Status.IsReview() {
		return nil, fmt.Errorf("%w: task %s is %s, not awaiting a decision", domain.ErrInvalidTransition, t.ID, t.Status)
	}
	if d.ExpectedVersion != t.Version {
		return nil, fmt.Errorf("%w: decision for version %d but task is at version %d", domain.ErrConflict, d.ExpectedVersion, t.Version)
	}
	if !plug.Graph().Allows(t.Status, d.Action) {
		return nil, fmt.Errorf("%w: action %q is not valid in status %s", domain.ErrInvalidTransition, d.Action, t.Status)
	}
	if t.Status == task.StatusAwaitingReview && d.Action == task.ActionApprove &&
		t.TestStatus == task.TestFail && !d.OverrideFailingTests {
		return nil, fmt.Errorf("%w: tests failed; approval requires override_failing_tests", domain.ErrValidation)
	}

	if o.metrics != nil {
		o.metrics.Decisions.Add(ctx, 1)
	}

	if err := o.step(ctx, plug, t, plugin.Event{Kind: plugin.EventDecision, Decision: d}); err != nil {
		return nil, err
	}

	if !t.Status.IsReview() && !t.Status.IsTerminal() {
		go o.drive(t.ID)
	}
	return t, nil
}

// drive advances a task through auto-advancing phases until it suspends at a
// review gate or reaches a terminal status. Runs detached from any request.
func (o *Orchestrator) drive(taskID string) {
	ctx := context.Background()
	mu := o.lock(taskID)

	for {
		mu.Lock()
		t, err := o.store.GetTask(ctx, taskID)
		if err != nil {
			mu.Unlock()
			slog.Error("drive: load task", "task_id", taskID, "error", err)
			return
		}
		if t.Status.IsReview() || t.Status.IsTerminal() {
			mu.Unlock()
			return
		}

		plug, ok := o.registry.Get(t.PluginID)
		if !ok {
			mu.Unlock()
			slog.Error("drive: plugin not registered", "task_id", taskID, "plugin", t.PluginID)
			return
		}

		err = o.step(ctx, plug, t, plugin.Event{Kind: plugin.EventStart})
		mu.Unlock()
		if err != nil {
			slog.Error("drive: step failed", "task_id", taskID, "error", err)
			return
		}
	}
}

// step runs one phase handler and persists the outcome. A handler error,
// timeout or panic moves the task to error with a readable message; step
// itself only fails when the store does. The caller must hold the task lock.
func (o *Orchestrator) step(ctx context.Context, plug plugin.Plugin, t *task.Task, ev plugin.Event) error {
	sctx, span := otel.StartTaskSpan(ctx, t.ID, t.PluginID, ev.Name())
	defer span.End()

	from := t.Status
	start := time.Now()
	upd, handleErr := o.safeHandle(sctx, plug, t, ev)
	if o.metrics != nil {
		o.metrics.HandlerSeconds.Record(ctx, time.Since(start).Seconds())
	}

	if handleErr != nil {
		msg := handleErr.Error()
		if errors.Is(handleErr, context.DeadlineExceeded) {
			msg = fmt.Sprintf("phase handler timed out after %s", o.handlerTimeout)
		}
		slog.Error("phase handler failed", "task_id", t.ID, "status", from, "event", ev.Name(), "error", handleErr)
		upd = plugin.Update{Status: task.StatusError, ErrorMessage: msg}
	}

	applyUpdate(t, upd)

	h := task.HistoryEntry{
		TaskID:     t.ID,
		FromStatus: from,
		ToStatus:   t.Status,
		Event:      ev.Name(),
	}
	if ev.Kind == plugin.EventDecision {
		h.Decision = ev.Decision.Action
	}

	pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := o.store.UpdateTask(pctx, t, h); err != nil {
		return fmt.Errorf("persist task %s: %w", t.ID, err)
	}

	if len(upd.Findings) > 0 {
		if err := o.store.CreateFindings(pctx, upd.Findings); err != nil {
			slog.Error("persist findings", "task_id", t.ID, "error", err)
		} else if o.hub != nil {
			o.hub.BroadcastEvent(pctx, ws.EventFindingCreated, ws.FindingCreatedEvent{
				TaskID: t.ID, PersonID: t.TargetPersonID, Count: len(upd.Findings),
			})
		}
	}

	o.afterTransition(pctx, t, from)
	return nil
}

// safeHandle invokes the plugin handler under the configured deadline and
// converts panics into errors so a buggy handler cannot take the process down.
func (o *Orchestrator) safeHandle(ctx context.Context, plug plugin.Plugin, t *task.Task, ev plugin.Event) (upd plugin.Update, err error) {
	hctx, cancel := context.WithTimeout(ctx, o.handlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("phase handler panicked: %v", r)
		}
	}()

	upd, err = plug.Handle(hctx, t, ev)
	if err == nil && hctx.Err() != nil {
		err = hctx.Err()
	}
	return upd, err
}

// afterTransition fans out the transition to metrics, the event bus, the
// WebSocket hub and the notifiers. Failures here never affect task state.
func (o *Orchestrator) afterTransition(ctx context.Context, t *task.Task, from task.Status) {
	slog.Info("task transition", "task_id", t.ID, "from", from, "to", t.Status, "version", t.Version)

	if o.metrics != nil {
		switch t.Status {
		case task.StatusApplied:
			o.metrics.TasksApplied.Add(ctx, 1)
		case task.StatusRejected:
			o.metrics.TasksRejected.Add(ctx, 1)
		case task.StatusError:
			o.metrics.TasksFailed.Add(ctx, 1)
		}
	}

	o.publish(messagequeue.StatusSubject(string(t.Status)), t)

	if o.hub != nil {
		o.hub.BroadcastEvent(ctx, ws.EventTaskStatus, ws.TaskStatusEvent{
			TaskID:     t.ID,
			PluginID:   t.PluginID,
			Status:     string(t.Status),
			TestStatus: string(t.TestStatus),
			Version:    t.Version,
		})
	}

	if o.notifier != nil {
		o.notifier.TaskTransition(t)
	}
}

func (o *Orchestrator) publish(subject string, t *task.Task) {
	if o.queue == nil {
		return
	}
	data, err := taskEventPayload(t)
	if err != nil {
		slog.Error("encode task event", "task_id", t.ID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish task event", "task_id", t.ID, "subject", subject, "error", err)
	}
}

// taskEventPayload is the JSON body published to the event bus.
func taskEventPayload(t *task.Task) ([]byte, error) {
	return json.Marshal(struct {
		TaskID   string `json:"task_id"`
		PluginID string `json:"plugin_id"`
		OwnerID  string `json:"owner_id"`
		Status   string `json:"status"`
		Version  int    `json:"version"`
	}{t.ID, t.PluginID, t.OwnerID, string(t.Status), t.Version})
}

func (o *Orchestrator) lock(taskID string) *sync.Mutex {
	mu, _ := o.locks.LoadOrStore(taskID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// applyUpdate copies a handler update onto the task. Status always applies;
// the context blob replaces when non-nil; string fields apply when non-empty.
func applyUpdate(t *task.Task, upd plugin.Update) {
	t.Status = upd.Status
	if upd.Context != nil {
		t.Context = upd.Context
	}
	if upd.LLMExplanation != "" {
		t.LLMExplanation = upd.LLMExplanation
	}
	if upd.ProposedDiff != "" {
		t.ProposedDiff = upd.ProposedDiff
	}
	if upd.TestStatus != "" {
		t.TestStatus = upd.TestStatus
	}
	if upd.TestResults != "" {
		t.TestResults = upd.TestResults
	}
	if upd.CommitHash != "" {
		t.CommitHash = upd.CommitHash
	}
	if upd.ErrorMessage != "" {
		t.ErrorMessage = upd.ErrorMessage
	}
}
