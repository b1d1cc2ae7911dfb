package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frankie-agent/frankie/internal/domain"
	"github.com/frankie-agent/frankie/internal/domain/task"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const taskColumns = `id, owner_id, plugin_id, prompt, target_files, target_person_id,
	status, llm_explanation, proposed_diff, test_status, test_results,
	error_message, commit_hash, context, version, created_at, updated_at`

// --- Tasks ---

func (s *Store) CreateTask(ctx context.Context, req task.CreateRequest, ownerID string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (owner_id, plugin_id, prompt, target_files, target_person_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+taskColumns,
		ownerID, req.PluginID, req.Prompt, req.TargetFiles, req.TargetPersonID)

	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC`
	args := []any{}
	if ownerID != "" {
		query = `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1 ORDER BY created_at DESC`
		args = append(args, ownerID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask persists t with an optimistic version check and appends the
// history row in the same transaction. The context blob is written as raw
// bytes so it round-trips without re-serialization.
func (s *Store) UpdateTask(ctx context.Context, t *task.Task, h task.HistoryEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update task: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE tasks SET status = $2, llm_explanation = $3, proposed_diff = $4,
			test_status = $5, test_results = $6, error_message = $7,
			commit_hash = $8, context = $9, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $10`,
		t.ID, t.Status, t.LLMExplanation, t.ProposedDiff,
		t.TestStatus, t.TestResults, t.ErrorMessage,
		t.CommitHash, []byte(t.Context), t.Version)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update task %s: %w", t.ID, domain.ErrConflict)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO task_history (task_id, from_status, to_status, event, decision)
		 VALUES ($1, $2, $3, $4, $5)`,
		h.TaskID, h.FromStatus, h.ToStatus, h.Event, nullString(string(h.Decision)))
	if err != nil {
		return fmt.Errorf("insert task history %s: %w", t.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update task %s: %w", t.ID, err)
	}
	t.Version++
	return nil
}

func (s *Store) ListTaskHistory(ctx context.Context, taskID string) ([]task.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, from_status, to_status, event, COALESCE(decision, ''), created_at
		 FROM task_history WHERE task_id = $1 ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task history: %w", err)
	}
	defer rows.Close()

	var entries []task.HistoryEntry
	for rows.Next() {
		var h task.HistoryEntry
		if err := rows.Scan(&h.ID, &h.TaskID, &h.FromStatus, &h.ToStatus, &h.Event, &h.Decision, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task history: %w", err)
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
