// Package visibility computes which organisations, projects and task lists a user can see.
//
// Two rules coexist. Navigation visibility is plain team membership: a user sees an
// organisation in menus and on the dashboard as soon as they belong to any of its
// teams. Project visibility is ACL-gated: a project is visible only when one of its
// ACL entries names a team containing the user.
package visibility

import (
	"context"

	orgdomain "titan/internal/organisation/domain"
	projectdomain "titan/internal/project/domain"
	taskdomain "titan/internal/task/domain"
	tasklistdomain "titan/internal/tasklist/domain"
	teamdomain "titan/internal/team/domain"
)

// OrganisationLister loads organisations by id, ordered by name.
type OrganisationLister interface {
	ListByIDs(ctx context.Context, ids []string) ([]*orgdomain.Organisation, error)
}

// TeamLister finds the teams a user belongs to.
type TeamLister interface {
	ListByMember(ctx context.Context, userID string) ([]*teamdomain.Team, error)
}

// ProjectLister lists projects of an organisation, or those with an ACL entry for any of teamIDs.
type ProjectLister interface {
	ListByOrganisation(ctx context.Context, orgID string) ([]*projectdomain.Project, error)
	ListByTeams(ctx context.Context, teamIDs []string) ([]*projectdomain.Project, error)
}

// TaskListLister lists the task lists of a project.
type TaskListLister interface {
	ListByProject(ctx context.Context, projectID string) ([]*tasklistdomain.TaskList, error)
}

// TaskLister lists the tasks of several task lists at once.
type TaskLister interface {
	ListByTaskLists(ctx context.Context, taskListIDs []string) ([]*taskdomain.Task, error)
}

// Repos holds the lookups the filters need.
type Repos struct {
	Organisations OrganisationLister
	Teams         TeamLister
	Projects      ProjectLister
	TaskLists     TaskListLister
	Tasks         TaskLister
}

// OrganisationProjects pairs an organisation with the projects of it the user can see.
type OrganisationProjects struct {
	Organisation *orgdomain.Organisation
	Projects     []*projectdomain.Project
}

// TaskListTasks pairs a task list with its tasks in sequence order.
type TaskListTasks struct {
	TaskList *tasklistdomain.TaskList
	Tasks    []*taskdomain.Task
}

// MemberTeams returns the ids of every team containing userID, across organisations.
func MemberTeams(ctx context.Context, r Repos, userID string) (map[string]bool, error) {
	teams, err := r.Teams.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(teams))
	for _, t := range teams {
		ids[t.ID] = true
	}
	return ids, nil
}

// VisibleOrganisations returns every organisation in which userID belongs to some team,
// ordered by name. Project ACLs play no part.
func VisibleOrganisations(ctx context.Context, r Repos, userID string) ([]*orgdomain.Organisation, error) {
	teams, err := r.Teams.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(teams))
	ids := make([]string, 0, len(teams))
	for _, t := range teams {
		if !seen[t.OrgID] {
			seen[t.OrgID] = true
			ids = append(ids, t.OrgID)
		}
	}
	return r.Organisations.ListByIDs(ctx, ids)
}

// VisibleProjects returns the projects of orgID with an ACL entry naming a team that contains userID.
func VisibleProjects(ctx context.Context, r Repos, userID, orgID string) ([]*projectdomain.Project, error) {
	teamIDs, err := MemberTeams(ctx, r, userID)
	if err != nil {
		return nil, err
	}
	return visibleIn(ctx, r, teamIDs, orgID)
}

// ReachableOrganisations returns the organisations holding at least one project visible to userID.
// It is always a subset of VisibleOrganisations.
func ReachableOrganisations(ctx context.Context, r Repos, userID string) ([]*orgdomain.Organisation, error) {
	teamIDs, err := MemberTeams(ctx, r, userID)
	if err != nil || len(teamIDs) == 0 {
		return nil, err
	}
	projects, err := r.Projects.ListByTeams(ctx, keys(teamIDs))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, p := range projects {
		if !seen[p.OrgID] {
			seen[p.OrgID] = true
			ids = append(ids, p.OrgID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return r.Organisations.ListByIDs(ctx, ids)
}

// CanSeeProject reports whether an ACL entry of p names a team containing userID.
func CanSeeProject(ctx context.Context, r Repos, userID string, p *projectdomain.Project) (bool, error) {
	if p == nil {
		return false, nil
	}
	teamIDs, err := MemberTeams(ctx, r, userID)
	if err != nil {
		return false, err
	}
	return p.GrantsAny(teamIDs), nil
}

// Dashboard returns the navigation organisations of userID, each with its visible projects.
// Organisations without visible projects are kept with an empty list.
func Dashboard(ctx context.Context, r Repos, userID string) ([]OrganisationProjects, error) {
	orgs, err := VisibleOrganisations(ctx, r, userID)
	if err != nil || len(orgs) == 0 {
		return nil, err
	}
	teamIDs, err := MemberTeams(ctx, r, userID)
	if err != nil {
		return nil, err
	}
	out := make([]OrganisationProjects, 0, len(orgs))
	for _, o := range orgs {
		projects, err := visibleIn(ctx, r, teamIDs, o.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, OrganisationProjects{Organisation: o, Projects: projects})
	}
	return out, nil
}

// ProjectTaskLists returns the task lists of projectID in sequence order, each with its tasks.
func ProjectTaskLists(ctx context.Context, r Repos, projectID string) ([]TaskListTasks, error) {
	lists, err := r.TaskLists.ListByProject(ctx, projectID)
	if err != nil || len(lists) == 0 {
		return nil, err
	}
	ids := make([]string, 0, len(lists))
	for _, l := range lists {
		ids = append(ids, l.ID)
	}
	tasks, err := r.Tasks.ListByTaskLists(ctx, ids)
	if err != nil {
		return nil, err
	}
	byList := make(map[string][]*taskdomain.Task, len(lists))
	for _, t := range tasks {
		byList[t.TaskListID] = append(byList[t.TaskListID], t)
	}
	out := make([]TaskListTasks, 0, len(lists))
	for _, l := range lists {
		out = append(out, TaskListTasks{TaskList: l, Tasks: byList[l.ID]})
	}
	return out, nil
}

func visibleIn(ctx context.Context, r Repos, teamIDs map[string]bool, orgID string) ([]*projectdomain.Project, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	projects, err := r.Projects.ListByOrganisation(ctx, orgID)
	if err != nil {
		return nil, err
	}
	var out []*projectdomain.Project
	for _, p := range projects {
		if p.GrantsAny(teamIDs) {
			out = append(out, p)
		}
	}
	return out, nil
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
