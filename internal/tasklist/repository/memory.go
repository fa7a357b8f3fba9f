package repository

import (
	"context"
	"sort"
	"sync"

	"titan/internal/platform/sequence"
	"titan/internal/tasklist/domain"
)

// MemoryRepository keeps task lists in process memory.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]*domain.TaskList
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.TaskList)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.TaskList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.m[id]; ok {
		c := *l
		return &c, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetBySequence(ctx context.Context, projectID string, seq int) (*domain.TaskList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.m {
		if l.ProjectID == projectID && l.Sequence == seq {
			c := *l
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.TaskList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.TaskList
	for _, l := range r.m {
		if l.ProjectID == projectID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *MemoryRepository) MaxSequence(ctx context.Context, projectID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	max := 0
	for _, l := range r.m {
		if l.ProjectID == projectID && l.Sequence > max {
			max = l.Sequence
		}
	}
	return max, nil
}

func (r *MemoryRepository) Create(ctx context.Context, l *domain.TaskList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.m {
		if existing.ProjectID == l.ProjectID && existing.Sequence == l.Sequence {
			return sequence.ErrTaken
		}
	}
	c := *l
	r.m[l.ID] = &c
	return nil
}
