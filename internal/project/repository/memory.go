package repository

import (
	"context"
	"sort"
	"sync"

	"titan/internal/project/domain"
)

// MemoryRepository keeps projects in process memory.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]*domain.Project
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Project)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyProject(r.m[id]), nil
}

func (r *MemoryRepository) GetBySlug(ctx context.Context, orgID, slug string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.m {
		if p.OrgID == orgID && p.Slug == slug {
			return copyProject(p), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListByOrganisation(ctx context.Context, orgID string) ([]*domain.Project, error) {
	return r.filter(func(p *domain.Project) bool { return p.OrgID == orgID }), nil
}

func (r *MemoryRepository) ListByTeams(ctx context.Context, teamIDs []string) ([]*domain.Project, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	set := make(map[string]bool, len(teamIDs))
	for _, id := range teamIDs {
		set[id] = true
	}
	return r.filter(func(p *domain.Project) bool { return p.GrantsAny(set) }), nil
}

func (r *MemoryRepository) Create(ctx context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.m {
		if existing.OrgID == p.OrgID && existing.Slug == p.Slug {
			return domain.ErrSlugTaken
		}
	}
	r.m[p.ID] = copyProject(p)
	return nil
}

func (r *MemoryRepository) filter(keep func(*domain.Project) bool) []*domain.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Project
	for _, p := range r.m {
		if keep(p) {
			out = append(out, copyProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

func copyProject(p *domain.Project) *domain.Project {
	if p == nil {
		return nil
	}
	c := *p
	c.ACL = append([]domain.ACLEntry(nil), p.ACL...)
	return &c
}
