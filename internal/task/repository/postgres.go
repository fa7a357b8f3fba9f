package repository

import (
	"context"
	"database/sql"
	"errors"

	"titan/internal/db"
	"titan/internal/platform/sequence"
	"titan/internal/task/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a task repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const selectTask = `SELECT id, task_list_id, title, status, COALESCE(assignee_id, ''), sequence, created_at, updated_at FROM tasks`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx, selectTask+` WHERE id = $1`, id))
}

func (r *PostgresRepository) GetBySequence(ctx context.Context, taskListID string, seq int) (*domain.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx, selectTask+` WHERE task_list_id = $1 AND sequence = $2`, taskListID, seq))
}

func (r *PostgresRepository) ListByTaskLists(ctx context.Context, taskListIDs []string) ([]*domain.Task, error) {
	if len(taskListIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, selectTask+` WHERE task_list_id = ANY($1) ORDER BY task_list_id, sequence`, taskListIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) MaxSequence(ctx context.Context, taskListID string) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM tasks WHERE task_list_id = $1`, taskListID,
	).Scan(&max)
	return max, err
}

func (r *PostgresRepository) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, task_list_id, title, status, assignee_id, sequence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.TaskListID, t.Title, string(t.Status), nullString(t.AssigneeID), t.Sequence, t.CreatedAt, t.UpdatedAt,
	)
	if db.IsUniqueViolation(err, "tasks_task_list_sequence_key") {
		return sequence.ErrTaken
	}
	return err
}

func (r *PostgresRepository) AppendFollowUp(ctx context.Context, f *domain.FollowUp) (*domain.Task, error) {
	var updated *domain.Task
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		t, err := scanTask(tx.QueryRowContext(ctx,
			`UPDATE tasks SET status = $2, assignee_id = $3, updated_at = $4 WHERE id = $1
			RETURNING id, task_list_id, title, status, COALESCE(assignee_id, ''), sequence, created_at, updated_at`,
			f.TaskID, string(f.ToStatus), nullString(f.ToAssigneeID), f.CreatedAt,
		))
		if err != nil || t == nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO follow_ups (id, task_id, author_id, message, to_status, to_assignee_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			f.ID, f.TaskID, f.AuthorID, f.Message, string(f.ToStatus), nullString(f.ToAssigneeID), f.CreatedAt,
		); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PostgresRepository) ListFollowUps(ctx context.Context, taskID string) ([]*domain.FollowUp, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, task_id, author_id, message, to_status, COALESCE(to_assignee_id, ''), created_at
		FROM follow_ups WHERE task_id = $1 ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.FollowUp
	for rows.Next() {
		var f domain.FollowUp
		var status string
		if err := rows.Scan(&f.ID, &f.TaskID, &f.AuthorID, &f.Message, &status, &f.ToAssigneeID, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.ToStatus = domain.Status(status)
		out = append(out, &f)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*domain.Task, error) {
	var t domain.Task
	var status string
	if err := s.Scan(&t.ID, &t.TaskListID, &t.Title, &status, &t.AssigneeID, &t.Sequence, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Status = domain.Status(status)
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
