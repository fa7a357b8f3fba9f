package web

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	orgdomain "titan/internal/organisation/domain"
	"titan/internal/platform/rbac"
	projectdomain "titan/internal/project/domain"
	taskdomain "titan/internal/task/domain"
	tasklistdomain "titan/internal/tasklist/domain"
)

// Depth says how much of the path {org}/{project}/{tl}/tasks/{task} Resolve walks.
type Depth int

const (
	DepthOrganisation Depth = iota + 1
	DepthProject
	DepthTaskList
	DepthTask
)

// Scope is what the path variables of a request resolve to for the signed-in user.
type Scope struct {
	Organisation *orgdomain.Organisation
	Project      *projectdomain.Project
	TaskList     *tasklistdomain.TaskList
	Task         *taskdomain.Task
}

// Resolve looks up the path variables org, project, tl and task down to depth. An
// organisation the user is not in yields rbac.ErrNotFound; anything below it that
// does not resolve yields rbac.ErrForbidden.
func Resolve(r *http.Request, repos rbac.Repos, depth Depth) (*Scope, error) {
	ctx := r.Context()
	vars := mux.Vars(r)
	userID, _ := UserID(ctx)
	s := &Scope{}
	var err error
	if s.Organisation, err = rbac.RequireOrgMember(ctx, repos, userID, vars["org"]); err != nil {
		return s, err
	}
	if depth < DepthProject {
		return s, nil
	}
	if s.Project, err = rbac.RequireProject(ctx, repos, userID, s.Organisation, vars["project"]); err != nil {
		return s, err
	}
	if depth < DepthTaskList {
		return s, nil
	}
	seq, err := strconv.Atoi(vars["tl"])
	if err != nil {
		return s, rbac.ErrForbidden
	}
	if s.TaskList, err = rbac.RequireTaskList(ctx, repos, s.Project, seq); err != nil {
		return s, err
	}
	if depth < DepthTask {
		return s, nil
	}
	seq, err = strconv.Atoi(vars["task"])
	if err != nil {
		return s, rbac.ErrForbidden
	}
	if s.Task, err = rbac.RequireTask(ctx, repos, s.TaskList, seq); err != nil {
		return s, err
	}
	return s, nil
}
