package engine

import "context"

// Actions checked against the authorization policy.
const (
	ActionTeamCreate         = "team.create"
	ActionOrgInvite          = "org.invite"
	ActionOrgRemoveMember    = "org.remove_member"
	ActionProjectCreate      = "project.create"
	ActionProjectInvite      = "project.invite"
	ActionFollowUpAssignable = "followup.assign"
)

// Subject describes the user asking to perform an action.
type Subject struct {
	UserID string
	// IsAdministrator is true when the user is in the organisation's Administrators team.
	IsAdministrator bool
	// InTargetTeam is true when the user belongs to the team the action targets
	// (the team given an ACL entry on project creation).
	InTargetTeam bool
	// AssigneeInProjectTeam is true when the chosen assignee belongs to a team on the project's ACL.
	AssigneeInProjectTeam bool
}

// Resource identifies what the action applies to.
type Resource struct {
	Organisation string
	Project      string
}

// Authorizer decides whether subject may perform action on resource.
type Authorizer interface {
	Allow(ctx context.Context, action string, subject Subject, resource Resource) (bool, error)
}
