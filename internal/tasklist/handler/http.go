package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	orgdomain "titan/internal/organisation/domain"
	"titan/internal/platform/rbac"
	projectdomain "titan/internal/project/domain"
	taskdomain "titan/internal/task/domain"
	"titan/internal/tasklist/domain"
	"titan/internal/tasklist/service"
	"titan/internal/visibility"
	"titan/internal/web"
)

type createForm struct {
	Name string `schema:"name" validate:"required,max=128"`
}

// Item is the JSON shape of a list entry or detail response.
type Item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ListPage is the data of the task list index, which carries the create form.
// Project is nil when the project in the path does not resolve.
type ListPage struct {
	Organisation *orgdomain.Organisation
	Project      *projectdomain.Project
	TaskLists    []visibility.TaskListTasks
}

// ShowPage is the data of a task list page.
type ShowPage struct {
	Organisation *orgdomain.Organisation
	Project      *projectdomain.Project
	TaskList     *domain.TaskList
	Tasks        []*taskdomain.Task
}

// Handler serves task list pages.
type Handler struct {
	lists  *service.Service
	access rbac.Repos
	site   *web.Site
}

// NewHandler returns the task list HTTP handler.
func NewHandler(lists *service.Service, access rbac.Repos, site *web.Site) *Handler {
	return &Handler{lists: lists, access: access, site: site}
}

// OrganisationRoutes mounts the /{org}/{project}/... task list routes.
func (h *Handler) OrganisationRoutes(r *mux.Router) {
	r.HandleFunc("/{org}/{project}/tasklists", h.List).Methods(http.MethodGet)
	r.HandleFunc("/{org}/{project}/tasklists", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/{org}/{project}/{tl:[0-9]+}", h.Show).Methods(http.MethodGet)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthProject)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	lists, err := visibility.ProjectTaskLists(r.Context(), h.access.Visibility, scope.Project.ID)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	if web.WantsJSON(r) {
		items := make([]Item, 0, len(lists))
		for _, l := range lists {
			items = append(items, Item{ID: l.TaskList.Sequence, Name: l.TaskList.Name})
		}
		h.site.JSON(w, http.StatusOK, map[string]interface{}{"result": items})
		return
	}
	h.site.Render(w, r, http.StatusOK, "tasklists", web.View{
		Title: scope.Project.Name + " task lists",
		Data:  ListPage{Organisation: scope.Organisation, Project: scope.Project, TaskLists: lists},
	})
}

// Create adds a task list. A project that does not resolve re-renders the form
// with a flash instead of answering 403.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthProject)
	if errors.Is(err, rbac.ErrForbidden) {
		h.site.Render(w, r, http.StatusOK, "tasklists", web.View{
			Title:   "Task lists",
			Flashes: []web.Flash{{Level: web.FlashError, Message: "Project not found."}},
			Data:    ListPage{Organisation: scope.Organisation},
		})
		return
	}
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	var form createForm
	err = web.DecodeForm(r, &form)
	if err == nil {
		userID, _ := web.UserID(r.Context())
		var l *domain.TaskList
		l, err = h.lists.Create(r.Context(), userID, scope.Project, form.Name)
		if err == nil {
			target := "/" + scope.Organisation.Slug + "/" + scope.Project.Slug + "/" + strconv.Itoa(l.Sequence)
			h.site.Redirect(w, r, target, web.Flash{Level: web.FlashSuccess, Message: "Task list created."})
			return
		}
	}
	lists, listErr := visibility.ProjectTaskLists(r.Context(), h.access.Visibility, scope.Project.ID)
	if listErr != nil {
		h.site.Fail(w, r, listErr)
		return
	}
	h.site.FormError(w, r, "tasklists", web.View{
		Title: scope.Project.Name + " task lists",
		Form:  web.FormValues(r),
		Data:  ListPage{Organisation: scope.Organisation, Project: scope.Project, TaskLists: lists},
	}, err)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthTaskList)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	if web.WantsJSON(r) {
		h.site.JSON(w, http.StatusOK, Item{ID: scope.TaskList.Sequence, Name: scope.TaskList.Name})
		return
	}
	tasks, err := h.access.Visibility.Tasks.ListByTaskLists(r.Context(), []string{scope.TaskList.ID})
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	h.site.Render(w, r, http.StatusOK, "tasklist", web.View{
		Title: scope.TaskList.Name,
		Data:  ShowPage{Organisation: scope.Organisation, Project: scope.Project, TaskList: scope.TaskList, Tasks: tasks},
	})
}
