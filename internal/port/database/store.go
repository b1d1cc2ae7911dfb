// Package database defines the persistence port (interface) for the task core.
package database

import (
	"context"

	"github.com/frankie-agent/frankie/internal/domain/finding"
	"github.com/frankie-agent/frankie/internal/domain/permission"
	"github.com/frankie-agent/frankie/internal/domain/task"
)

// Store is the single-writer persistence interface. Tasks are never deleted;
// every status change appends a history row in the same transaction.
type Store interface {
	// Tasks
	CreateTask(ctx context.Context, req task.CreateRequest, ownerID string) (*task.Task, error)
	GetTask(ctx context.Context, id string) (*task.Task, error)
	ListTasks(ctx context.Context, ownerID string) ([]task.Task, error)
	// UpdateTask persists t using optimistic concurrency: the row is updated
	// only when the stored version equals t.Version, the history entry is
	// written atomically with it, and t.Version is bumped on success.
	// Returns domain.ErrConflict when the version check fails.
	UpdateTask(ctx context.Context, t *task.Task, h task.HistoryEntry) error
	ListTaskHistory(ctx context.Context, taskID string) ([]task.HistoryEntry, error)

	// Permissions
	CreatePermission(ctx context.Context, req permission.CreateRequest) (*permission.Entry, error)
	ListPermissions(ctx context.Context) ([]permission.Entry, error)
	DeletePermission(ctx context.Context, id string) error

	// Findings
	CreateFindings(ctx context.Context, findings []finding.Finding) error
	ListFindingsByTask(ctx context.Context, taskID string) ([]finding.Finding, error)
	UpdateFindingStatus(ctx context.Context, id string, status finding.Status) error
	UpdateFindingStatusByTask(ctx context.Context, taskID string, status finding.Status) error
}
