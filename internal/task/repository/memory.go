package repository

import (
	"context"
	"sort"
	"sync"

	"titan/internal/platform/sequence"
	"titan/internal/task/domain"
)

// MemoryRepository keeps tasks and follow-ups in process memory.
type MemoryRepository struct {
	mu        sync.RWMutex
	tasks     map[string]*domain.Task
	followUps map[string][]domain.FollowUp
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tasks:     make(map[string]*domain.Task),
		followUps: make(map[string][]domain.FollowUp),
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyTask(r.tasks[id]), nil
}

func (r *MemoryRepository) GetBySequence(ctx context.Context, taskListID string, seq int) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tasks {
		if t.TaskListID == taskListID && t.Sequence == seq {
			return copyTask(t), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListByTaskLists(ctx context.Context, taskListIDs []string) ([]*domain.Task, error) {
	if len(taskListIDs) == 0 {
		return nil, nil
	}
	set := make(map[string]bool, len(taskListIDs))
	for _, id := range taskListIDs {
		set[id] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Task
	for _, t := range r.tasks {
		if set[t.TaskListID] {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaskListID != out[j].TaskListID {
			return out[i].TaskListID < out[j].TaskListID
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

func (r *MemoryRepository) MaxSequence(ctx context.Context, taskListID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	max := 0
	for _, t := range r.tasks {
		if t.TaskListID == taskListID && t.Sequence > max {
			max = t.Sequence
		}
	}
	return max, nil
}

func (r *MemoryRepository) Create(ctx context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tasks {
		if existing.TaskListID == t.TaskListID && existing.Sequence == t.Sequence {
			return sequence.ErrTaken
		}
	}
	r.tasks[t.ID] = copyTask(t)
	return nil
}

func (r *MemoryRepository) AppendFollowUp(ctx context.Context, f *domain.FollowUp) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[f.TaskID]
	if !ok {
		return nil, nil
	}
	t.Status = f.ToStatus
	t.AssigneeID = f.ToAssigneeID
	t.UpdatedAt = f.CreatedAt
	r.followUps[f.TaskID] = append(r.followUps[f.TaskID], *f)
	return copyTask(t), nil
}

func (r *MemoryRepository) ListFollowUps(ctx context.Context, taskID string) ([]*domain.FollowUp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.followUps[taskID]
	out := make([]*domain.FollowUp, 0, len(list))
	for i := range list {
		f := list[i]
		out = append(out, &f)
	}
	return out, nil
}

func copyTask(t *domain.Task) *domain.Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
