package repository

import (
	"context"
	"database/sql"
	"errors"

	"titan/internal/db"
	"titan/internal/platform/sequence"
	"titan/internal/tasklist/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a task list repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const selectTaskList = `SELECT id, project_id, name, sequence, created_at FROM task_lists`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.TaskList, error) {
	return scanTaskList(r.db.QueryRowContext(ctx, selectTaskList+` WHERE id = $1`, id))
}

func (r *PostgresRepository) GetBySequence(ctx context.Context, projectID string, seq int) (*domain.TaskList, error) {
	return scanTaskList(r.db.QueryRowContext(ctx, selectTaskList+` WHERE project_id = $1 AND sequence = $2`, projectID, seq))
}

func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.TaskList, error) {
	rows, err := r.db.QueryContext(ctx, selectTaskList+` WHERE project_id = $1 ORDER BY sequence`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.TaskList
	for rows.Next() {
		l, err := scanTaskList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) MaxSequence(ctx context.Context, projectID string) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM task_lists WHERE project_id = $1`, projectID,
	).Scan(&max)
	return max, err
}

func (r *PostgresRepository) Create(ctx context.Context, l *domain.TaskList) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_lists (id, project_id, name, sequence, created_at) VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.ProjectID, l.Name, l.Sequence, l.CreatedAt,
	)
	if db.IsUniqueViolation(err, "task_lists_project_sequence_key") {
		return sequence.ErrTaken
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTaskList(s scanner) (*domain.TaskList, error) {
	var l domain.TaskList
	if err := s.Scan(&l.ID, &l.ProjectID, &l.Name, &l.Sequence, &l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
