package rbac

import (
	"context"
	"fmt"

	teamdomain "titan/internal/team/domain"
)

// IsOrgAdministrator reports whether userID is in the Administrators team of orgID.
func IsOrgAdministrator(ctx context.Context, teams TeamGetter, orgID, userID string) (bool, error) {
	admins, err := teams.GetByOrgAndName(ctx, orgID, teamdomain.AdministratorsTeam)
	if err != nil {
		return false, fmt.Errorf("resolve administrators: %w", err)
	}
	if admins == nil {
		return false, nil
	}
	return teams.IsMember(ctx, admins.ID, userID)
}
