package repository

import (
	"context"
	"database/sql"
	"errors"

	"titan/internal/db"
	"titan/internal/organisation/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organisation repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the organisation for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Organisation, error) {
	return scanOrganisation(r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM organisations WHERE id = $1`, id))
}

// GetBySlug returns the organisation with slug, or nil if not found.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*domain.Organisation, error) {
	return scanOrganisation(r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM organisations WHERE slug = $1`, slug))
}

// ListByIDs returns the organisations with the given ids ordered by name.
func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Organisation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at FROM organisations WHERE id = ANY($1) ORDER BY name, slug`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Organisation
	for rows.Next() {
		o, err := scanOrganisation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Create persists the organisation. Returns domain.ErrSlugTaken when the slug is in use.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Organisation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organisations (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
		o.ID, o.Name, o.Slug, o.CreatedAt,
	)
	if db.IsUniqueViolation(err, "organisations_slug_key") {
		return domain.ErrSlugTaken
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrganisation(s scanner) (*domain.Organisation, error) {
	var o domain.Organisation
	if err := s.Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
