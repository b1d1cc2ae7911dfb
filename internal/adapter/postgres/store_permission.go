package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/frankie-agent/frankie/internal/domain"
	"github.com/frankie-agent/frankie/internal/domain/permission"
)

// --- Permissions ---

func (s *Store) CreatePermission(ctx context.Context, req permission.CreateRequest) (*permission.Entry, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO permissions (path_pattern, comment)
		 VALUES ($1, $2)
		 RETURNING id, path_pattern, comment, created_at`,
		req.PathPattern, req.Comment)

	var e permission.Entry
	if err := row.Scan(&e.ID, &e.PathPattern, &e.Comment, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("create permission: %w", err)
	}
	return &e, nil
}

func (s *Store) ListPermissions(ctx context.Context) ([]permission.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, path_pattern, comment, created_at
		 FROM permissions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	var entries []permission.Entry
	for rows.Next() {
		var e permission.Entry
		if err := rows.Scan(&e.ID, &e.PathPattern, &e.Comment, &e.CreatedAt); err != nil {
			return nil, scanErr("permission", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) DeletePermission(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("delete permission %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("delete permission %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete permission %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
