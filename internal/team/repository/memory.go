package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"titan/internal/team/domain"
)

// MemoryRepository keeps teams and memberships in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	teams   map[string]*domain.Team
	members map[string][]domain.Member // team id -> members in join order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		teams:   make(map[string]*domain.Team),
		members: make(map[string][]domain.Member),
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyTeam(r.teams[id]), nil
}

func (r *MemoryRepository) GetByOrgAndName(ctx context.Context, orgID, name string) (*domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.teams {
		if t.OrgID == orgID && t.Name == name {
			return copyTeam(t), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListByOrganisation(ctx context.Context, orgID string) ([]*domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Team
	for _, t := range r.teams {
		if t.OrgID == orgID {
			out = append(out, copyTeam(t))
		}
	}
	sortTeams(out)
	return out, nil
}

func (r *MemoryRepository) ListByMember(ctx context.Context, userID string) ([]*domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Team
	for teamID, members := range r.members {
		if indexOf(members, userID) >= 0 {
			out = append(out, copyTeam(r.teams[teamID]))
		}
	}
	sortTeams(out)
	return out, nil
}

func (r *MemoryRepository) Create(ctx context.Context, t *domain.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.teams {
		if existing.OrgID == t.OrgID && existing.Name == t.Name {
			return domain.ErrNameTaken
		}
	}
	r.teams[t.ID] = copyTeam(t)
	return nil
}

func (r *MemoryRepository) AddMember(ctx context.Context, teamID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if indexOf(r.members[teamID], userID) >= 0 {
		return false, nil
	}
	r.members[teamID] = append(r.members[teamID], domain.Member{TeamID: teamID, UserID: userID, CreatedAt: time.Now().UTC()})
	return true, nil
}

func (r *MemoryRepository) RemoveFromOrganisation(ctx context.Context, orgID, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, t := range r.teams {
		if t.OrgID == orgID && r.removeLocked(id, userID) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return indexOf(r.members[teamID], userID) >= 0, nil
}

func (r *MemoryRepository) ListMemberIDs(ctx context.Context, teamID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.members[teamID]
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

func (r *MemoryRepository) removeLocked(teamID, userID string) bool {
	members := r.members[teamID]
	i := indexOf(members, userID)
	if i < 0 {
		return false
	}
	r.members[teamID] = append(members[:i:i], members[i+1:]...)
	return true
}

func indexOf(members []domain.Member, userID string) int {
	for i, m := range members {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

func sortTeams(ts []*domain.Team) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Name != ts[j].Name {
			return ts[i].Name < ts[j].Name
		}
		return ts[i].ID < ts[j].ID
	})
}

func copyTeam(t *domain.Team) *domain.Team {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
