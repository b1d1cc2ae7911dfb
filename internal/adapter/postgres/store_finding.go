package postgres

import (
	"context"
	"fmt"

	"github.com/frankie-agent/frankie/internal/domain"
	"github.com/frankie-agent/frankie/internal/domain/finding"
)

// --- Findings ---

func (s *Store) CreateFindings(ctx context.Context, findings []finding.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create findings: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, f := range findings {
		_, err := tx.Exec(ctx,
			`INSERT INTO findings (task_id, person_id, data_field, original_value,
				suggested_value, confidence_score, source_name, citation_text, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			f.TaskID, f.PersonID, f.DataField, f.OriginalValue,
			f.SuggestedValue, f.ConfidenceScore, f.SourceName, f.CitationText, f.Status)
		if err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) ListFindingsByTask(ctx context.Context, taskID string) ([]finding.Finding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, person_id, data_field, COALESCE(original_value, ''),
			suggested_value, confidence_score, COALESCE(source_name, ''),
			COALESCE(citation_text, ''), status, created_at, reviewed_at
		 FROM findings WHERE task_id = $1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	defer rows.Close()

	var findings []finding.Finding
	for rows.Next() {
		var f finding.Finding
		if err := rows.Scan(&f.ID, &f.TaskID, &f.PersonID, &f.DataField, &f.OriginalValue,
			&f.SuggestedValue, &f.ConfidenceScore, &f.SourceName,
			&f.CitationText, &f.Status, &f.CreatedAt, &f.ReviewedAt); err != nil {
			return nil, scanErr("finding", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

func (s *Store) UpdateFindingStatus(ctx context.Context, id string, status finding.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE findings SET status = $2, reviewed_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update finding %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update finding %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) UpdateFindingStatusByTask(ctx context.Context, taskID string, status finding.Status) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE findings SET status = $2, reviewed_at = now()
		 WHERE task_id = $1 AND status = 'unverified'`, taskID, status)
	if err != nil {
		return fmt.Errorf("update findings for task %s: %w", taskID, err)
	}
	return nil
}
