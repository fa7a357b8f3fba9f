package repository

import (
	"context"

	"titan/internal/team/domain"
)

// Repository defines persistence for teams and their members.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	GetByOrgAndName(ctx context.Context, orgID, name string) (*domain.Team, error)
	ListByOrganisation(ctx context.Context, orgID string) ([]*domain.Team, error)
	// ListByMember returns every team, across organisations, that userID belongs to.
	ListByMember(ctx context.Context, userID string) ([]*domain.Team, error)
	Create(ctx context.Context, t *domain.Team) error

	// AddMember adds userID to teamID. added is false when the user was already a member.
	AddMember(ctx context.Context, teamID, userID string) (added bool, err error)
	// RemoveFromOrganisation removes userID from every team of orgID and returns the number of memberships removed.
	RemoveFromOrganisation(ctx context.Context, orgID, userID string) (int, error)
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
	ListMemberIDs(ctx context.Context, teamID string) ([]string, error)
}
