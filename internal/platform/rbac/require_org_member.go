// Package rbac resolves the organisation, project, task list and task named in a
// request path and checks that the current user may reach them.
package rbac

import (
	"context"
	"errors"
	"fmt"

	orgdomain "titan/internal/organisation/domain"
	projectdomain "titan/internal/project/domain"
	taskdomain "titan/internal/task/domain"
	tasklistdomain "titan/internal/tasklist/domain"
	teamdomain "titan/internal/team/domain"
	"titan/internal/visibility"
)

var (
	// ErrNotFound means the organisation is not one of the user's.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means a project, task list or task does not resolve under the organisation.
	ErrForbidden = errors.New("forbidden")
	// ErrPermissionDenied means the user may see the resource but not perform the action.
	ErrPermissionDenied = errors.New("permission denied")
)

// OrganisationGetter resolves an organisation slug. A nil result means no such organisation.
type OrganisationGetter interface {
	GetBySlug(ctx context.Context, slug string) (*orgdomain.Organisation, error)
}

// TeamGetter looks up teams by name and checks membership.
type TeamGetter interface {
	GetByOrgAndName(ctx context.Context, orgID, name string) (*teamdomain.Team, error)
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
}

// ProjectGetter resolves a project slug within an organisation.
type ProjectGetter interface {
	GetBySlug(ctx context.Context, orgID, slug string) (*projectdomain.Project, error)
}

// TaskListGetter resolves a task list by its sequence within a project.
type TaskListGetter interface {
	GetBySequence(ctx context.Context, projectID string, seq int) (*tasklistdomain.TaskList, error)
}

// TaskGetter resolves a task by its sequence within a task list.
type TaskGetter interface {
	GetBySequence(ctx context.Context, taskListID string, seq int) (*taskdomain.Task, error)
}

// Repos holds the lookups the checks need.
type Repos struct {
	Visibility    visibility.Repos
	Organisations OrganisationGetter
	Teams         TeamGetter
	Projects      ProjectGetter
	TaskLists     TaskListGetter
	Tasks         TaskGetter
}

// RequireOrgMember returns the organisation with slug when it is one of userID's
// navigation organisations. Returns ErrNotFound otherwise.
func RequireOrgMember(ctx context.Context, r Repos, userID, slug string) (*orgdomain.Organisation, error) {
	if userID == "" || slug == "" {
		return nil, ErrNotFound
	}
	org, err := r.Organisations.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("resolve organisation: %w", err)
	}
	if org == nil {
		return nil, ErrNotFound
	}
	teams, err := r.Visibility.Teams.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve teams: %w", err)
	}
	for _, t := range teams {
		if t.OrgID == org.ID {
			return org, nil
		}
	}
	return nil, ErrNotFound
}

// RequireProject returns the project of org with slug when userID can see it through the ACL.
// Returns ErrForbidden otherwise.
func RequireProject(ctx context.Context, r Repos, userID string, org *orgdomain.Organisation, slug string) (*projectdomain.Project, error) {
	p, err := r.Projects.GetBySlug(ctx, org.ID, slug)
	if err != nil {
		return nil, fmt.Errorf("resolve project: %w", err)
	}
	if p == nil {
		return nil, ErrForbidden
	}
	ok, err := visibility.CanSeeProject(ctx, r.Visibility, userID, p)
	if err != nil {
		return nil, fmt.Errorf("resolve project: %w", err)
	}
	if !ok {
		return nil, ErrForbidden
	}
	return p, nil
}

// RequireTaskList returns the task list of project with sequence seq, or ErrForbidden.
func RequireTaskList(ctx context.Context, r Repos, project *projectdomain.Project, seq int) (*tasklistdomain.TaskList, error) {
	if seq < 1 {
		return nil, ErrForbidden
	}
	l, err := r.TaskLists.GetBySequence(ctx, project.ID, seq)
	if err != nil {
		return nil, fmt.Errorf("resolve task list: %w", err)
	}
	if l == nil {
		return nil, ErrForbidden
	}
	return l, nil
}

// RequireTask returns the task of list with sequence seq, or ErrForbidden.
func RequireTask(ctx context.Context, r Repos, list *tasklistdomain.TaskList, seq int) (*taskdomain.Task, error) {
	if seq < 1 {
		return nil, ErrForbidden
	}
	t, err := r.Tasks.GetBySequence(ctx, list.ID, seq)
	if err != nil {
		return nil, fmt.Errorf("resolve task: %w", err)
	}
	if t == nil {
		return nil, ErrForbidden
	}
	return t, nil
}
