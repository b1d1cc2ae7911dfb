package service

import (
	"context"
	"fmt"

	"github.com/frankie-agent/frankie/internal/domain"
	"github.com/frankie-agent/frankie/internal/domain/finding"
	"github.com/frankie-agent/frankie/internal/domain/task"
	"github.com/frankie-agent/frankie/internal/port/database"
)

// TaskService serves read access to tasks and their audit trail, plus the
// per-finding review path. Reads are lock-free; all mutation of task status
// goes through the Orchestrator.
type TaskService struct {
	store database.Store
}

// NewTaskService creates the read-side task service.
func NewTaskService(store database.Store) *TaskService {
	return &TaskService{store: store}
}

// Get returns a single task.
func (s *TaskService) Get(ctx context.Context, id string) (*task.Task, error) {
	return s.store.GetTask(ctx, id)
}

// List returns tasks, optionally filtered by owner.
func (s *TaskService) List(ctx context.Context, ownerID string) ([]task.Task, error) {
	return s.store.ListTasks(ctx, ownerID)
}

// History returns the append-only transition trail of a task.
func (s *TaskService) History(ctx context.Context, taskID string) ([]task.HistoryEntry, error) {
	if _, err := s.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.store.ListTaskHistory(ctx, taskID)
}

// ListFindings returns the findings produced by a research task.
func (s *TaskService) ListFindings(ctx context.Context, taskID string) ([]finding.Finding, error) {
	return s.store.ListFindingsByTask(ctx, taskID)
}

// ReviewFinding accepts or rejects a single finding independently of the
// owning task's review gate.
func (s *TaskService) ReviewFinding(ctx context.Context, id string, accept bool) error {
	status := finding.StatusRejected
	if accept {
		status = finding.StatusAccepted
	}
	if err := s.store.UpdateFindingStatus(ctx, id, status); err != nil {
		return fmt.Errorf("review finding: %w", err)
	}
	return nil
}

// ValidateCreate applies plugin-specific field requirements before a task is
// accepted.
func ValidateCreate(req task.CreateRequest) error {
	switch req.PluginID {
	case CodeModifierID:
		if len(req.TargetFiles) == 0 {
			return fmt.Errorf("%w: target_files is required for %s", domain.ErrValidation, CodeModifierID)
		}
	case GenealogyID:
		if req.TargetPersonID == "" {
			return fmt.Errorf("%w: target_person_id is required for %s", domain.ErrValidation, GenealogyID)
		}
	}
	return nil
}
