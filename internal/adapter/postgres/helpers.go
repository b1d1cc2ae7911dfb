package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/frankie-agent/frankie/internal/domain/task"
)

// scanTask reads one task row. The context column is scanned into raw bytes
// and attached unmodified so plugins get back exactly what they wrote.
func scanTask(row pgx.Row) (task.Task, error) {
	var (
		t       task.Task
		rawCtx  []byte
		llmExpl *string
		diff    *string
		results *string
		errMsg  *string
		commit  *string
		person  *string
	)
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.PluginID, &t.Prompt, &t.TargetFiles, &person,
		&t.Status, &llmExpl, &diff, &t.TestStatus, &results,
		&errMsg, &commit, &rawCtx, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return task.Task{}, err
	}

	t.TargetPersonID = deref(person)
	t.LLMExplanation = deref(llmExpl)
	t.ProposedDiff = deref(diff)
	t.TestResults = deref(results)
	t.ErrorMessage = deref(errMsg)
	t.CommitHash = deref(commit)
	if len(rawCtx) > 0 {
		t.Context = json.RawMessage(rawCtx)
	}
	return t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nullString maps "" to NULL for optional text columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// scanErr wraps a scan error with the entity name for context.
func scanErr(entity string, err error) error {
	return fmt.Errorf("scan %s: %w", entity, err)
}
