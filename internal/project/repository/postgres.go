package repository

import (
	"context"
	"database/sql"
	"errors"

	"titan/internal/db"
	"titan/internal/project/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a project repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const selectProject = `SELECT id, org_id, name, slug, created_at FROM projects`

// GetByID returns the project for id with its ACL, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	return r.get(ctx, selectProject+` WHERE id = $1`, id)
}

// GetBySlug returns the project of orgID with slug, or nil if not found.
func (r *PostgresRepository) GetBySlug(ctx context.Context, orgID, slug string) (*domain.Project, error) {
	return r.get(ctx, selectProject+` WHERE org_id = $1 AND slug = $2`, orgID, slug)
}

func (r *PostgresRepository) ListByOrganisation(ctx context.Context, orgID string) ([]*domain.Project, error) {
	return r.list(ctx, selectProject+` WHERE org_id = $1 ORDER BY name, slug`, orgID)
}

func (r *PostgresRepository) ListByTeams(ctx context.Context, teamIDs []string) ([]*domain.Project, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, selectProject+` WHERE id IN (SELECT project_id FROM project_acl WHERE team_id = ANY($1))
		ORDER BY name, slug`, teamIDs)
}

// Create inserts the project and its ACL in one transaction. Returns domain.ErrSlugTaken on slug conflict.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Project) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO projects (id, org_id, name, slug, created_at) VALUES ($1, $2, $3, $4, $5)`,
			p.ID, p.OrgID, p.Name, p.Slug, p.CreatedAt,
		)
		if db.IsUniqueViolation(err, "projects_org_slug_key") {
			return domain.ErrSlugTaken
		}
		if err != nil {
			return err
		}
		for i, e := range p.ACL {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO project_acl (project_id, team_id, role, position) VALUES ($1, $2, $3, $4)`,
				p.ID, e.TeamID, string(e.Role), i,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepository) get(ctx context.Context, query string, args ...any) (*domain.Project, error) {
	var p domain.Project
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.OrgID, &p.Name, &p.Slug, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadACL(ctx, []*domain.Project{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []*domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.Slug, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if err := r.loadACL(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadACL fills the ACL of every project with a single query.
func (r *PostgresRepository) loadACL(ctx context.Context, projects []*domain.Project) error {
	if len(projects) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Project, len(projects))
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT project_id, team_id, role FROM project_acl WHERE project_id = ANY($1) ORDER BY project_id, position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var projectID, teamID, role string
		if err := rows.Scan(&projectID, &teamID, &role); err != nil {
			return err
		}
		if p, ok := byID[projectID]; ok {
			p.ACL = append(p.ACL, domain.ACLEntry{TeamID: teamID, Role: domain.Role(role)})
		}
	}
	return rows.Err()
}
