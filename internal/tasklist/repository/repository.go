package repository

import (
	"context"

	"titan/internal/tasklist/domain"
)

// Repository defines persistence for task lists.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.TaskList, error)
	GetBySequence(ctx context.Context, projectID string, seq int) (*domain.TaskList, error)
	// ListByProject returns the task lists of projectID ordered by sequence.
	ListByProject(ctx context.Context, projectID string) ([]*domain.TaskList, error)
	// MaxSequence returns the highest sequence used in projectID, or 0.
	MaxSequence(ctx context.Context, projectID string) (int, error)
	// Create persists l. Returns sequence.ErrTaken when l.Sequence is already used in the project.
	Create(ctx context.Context, l *domain.TaskList) error
}
