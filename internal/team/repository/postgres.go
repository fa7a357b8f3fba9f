package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"titan/internal/db"
	"titan/internal/team/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a team repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the team for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	return scanTeam(r.db.QueryRowContext(ctx,
		`SELECT id, org_id, name, created_at FROM teams WHERE id = $1`, id))
}

// GetByOrgAndName returns the named team of the organisation, or nil if not found.
func (r *PostgresRepository) GetByOrgAndName(ctx context.Context, orgID, name string) (*domain.Team, error) {
	return scanTeam(r.db.QueryRowContext(ctx,
		`SELECT id, org_id, name, created_at FROM teams WHERE org_id = $1 AND name = $2`, orgID, name))
}

// ListByOrganisation returns the teams of orgID ordered by name.
func (r *PostgresRepository) ListByOrganisation(ctx context.Context, orgID string) ([]*domain.Team, error) {
	return r.list(ctx, `SELECT id, org_id, name, created_at FROM teams WHERE org_id = $1 ORDER BY name`, orgID)
}

// ListByMember returns the teams userID belongs to ordered by name.
func (r *PostgresRepository) ListByMember(ctx context.Context, userID string) ([]*domain.Team, error) {
	return r.list(ctx, `SELECT t.id, t.org_id, t.name, t.created_at
		FROM teams t JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1 ORDER BY t.name`, userID)
}

// Create persists the team. Returns domain.ErrNameTaken when the organisation already has the name.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Team) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO teams (id, org_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.OrgID, t.Name, t.CreatedAt,
	)
	if db.IsUniqueViolation(err, "teams_org_name_key") {
		return domain.ErrNameTaken
	}
	return err
}

func (r *PostgresRepository) AddMember(ctx context.Context, teamID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO team_members (team_id, user_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (team_id, user_id) DO NOTHING`,
		teamID, userID, time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepository) RemoveFromOrganisation(ctx context.Context, orgID, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM team_members WHERE user_id = $1 AND team_id IN (SELECT id FROM teams WHERE org_id = $2)`,
		userID, orgID,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PostgresRepository) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)`, teamID, userID,
	).Scan(&ok)
	return ok, err
}

// ListMemberIDs returns the user ids of the team in the order they joined.
func (r *PostgresRepository) ListMemberIDs(ctx context.Context, teamID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM team_members WHERE team_id = $1 ORDER BY created_at, user_id`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Team, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTeam(s scanner) (*domain.Team, error) {
	var t domain.Team
	if err := s.Scan(&t.ID, &t.OrgID, &t.Name, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
