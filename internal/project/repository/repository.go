package repository

import (
	"context"

	"titan/internal/project/domain"
)

// Repository defines persistence for projects and their access-control lists.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	GetBySlug(ctx context.Context, orgID, slug string) (*domain.Project, error)
	ListByOrganisation(ctx context.Context, orgID string) ([]*domain.Project, error)
	// ListByTeams returns the projects with at least one ACL entry naming one of teamIDs.
	ListByTeams(ctx context.Context, teamIDs []string) ([]*domain.Project, error)
	// Create persists the project and its ACL.
	Create(ctx context.Context, p *domain.Project) error
}
