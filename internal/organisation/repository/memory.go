package repository

import (
	"context"
	"sort"
	"sync"

	"titan/internal/organisation/domain"
)

// MemoryRepository keeps organisations in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Organisation
	bySlug map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*domain.Organisation),
		bySlug: make(map[string]string),
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Organisation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyOrganisation(r.byID[id]), nil
}

func (r *MemoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Organisation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySlug[slug]
	if !ok {
		return nil, nil
	}
	return copyOrganisation(r.byID[id]), nil
}

func (r *MemoryRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Organisation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(ids))
	var out []*domain.Organisation
	for _, id := range ids {
		if o, ok := r.byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, copyOrganisation(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

func (r *MemoryRepository) Create(ctx context.Context, o *domain.Organisation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySlug[o.Slug]; ok {
		return domain.ErrSlugTaken
	}
	r.byID[o.ID] = copyOrganisation(o)
	r.bySlug[o.Slug] = o.ID
	return nil
}

func copyOrganisation(o *domain.Organisation) *domain.Organisation {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}
