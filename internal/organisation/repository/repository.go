package repository

import (
	"context"

	"titan/internal/organisation/domain"
)

// Repository defines persistence for organisations.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Organisation, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Organisation, error)
	ListByIDs(ctx context.Context, ids []string) ([]*domain.Organisation, error)
	Create(ctx context.Context, o *domain.Organisation) error
}
