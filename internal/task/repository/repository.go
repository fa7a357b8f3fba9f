package repository

import (
	"context"

	"titan/internal/task/domain"
)

// Repository defines persistence for tasks and their follow-ups.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	GetBySequence(ctx context.Context, taskListID string, seq int) (*domain.Task, error)
	// ListByTaskLists returns the tasks of the given task lists ordered by task list then sequence.
	ListByTaskLists(ctx context.Context, taskListIDs []string) ([]*domain.Task, error)
	MaxSequence(ctx context.Context, taskListID string) (int, error)
	// Create persists t. Returns sequence.ErrTaken when t.Sequence is already used in the task list.
	Create(ctx context.Context, t *domain.Task) error

	// AppendFollowUp stores f and moves its task to f.ToStatus and f.ToAssigneeID in one step.
	// It returns the updated task, or nil if the task does not exist.
	AppendFollowUp(ctx context.Context, f *domain.FollowUp) (*domain.Task, error)
	// ListFollowUps returns the follow-ups of taskID oldest first.
	ListFollowUps(ctx context.Context, taskID string) ([]*domain.FollowUp, error)
}
