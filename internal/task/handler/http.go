package handler

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"titan/internal/platform/rbac"
	"titan/internal/task/domain"
	"titan/internal/task/service"
	userdomain "titan/internal/user/domain"
	"titan/internal/web"
)

type taskForm struct {
	Title      string `schema:"title" validate:"required,max=256"`
	Status     string `schema:"status"`
	AssignedTo string `schema:"assigned_to"`
}

type commentForm struct {
	Message    string `schema:"message" validate:"required,max=10000"`
	Status     string `schema:"status"`
	AssignedTo string `schema:"assigned_to"`
}

// Item is the JSON shape of a list entry or detail response.
type Item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// FormPage is the data of the new-task form.
type FormPage struct {
	Scope     *web.Scope
	Assignees []*userdomain.User
}

// ShowPage is the data of a task page.
type ShowPage struct {
	Scope     *web.Scope
	FollowUps []service.FollowUpView
	Assignees []*userdomain.User
}

// ListPage is the data of the tasks of a task list.
type ListPage struct {
	Scope *web.Scope
	Tasks []*domain.Task
}

// Handler serves tasks and their follow-ups.
type Handler struct {
	tasks  *service.Service
	access rbac.Repos
	site   *web.Site
}

// NewHandler returns the task HTTP handler.
func NewHandler(tasks *service.Service, access rbac.Repos, site *web.Site) *Handler {
	return &Handler{tasks: tasks, access: access, site: site}
}

// Routes mounts the fixed-prefix routes.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/comment/mail/{org}/{project}/{tl:[0-9]+}/{task:[0-9]+}", h.MailLink).Methods(http.MethodGet)
}

// OrganisationRoutes mounts the /{org}/{project}/{tl}/tasks routes.
func (h *Handler) OrganisationRoutes(r *mux.Router) {
	r.HandleFunc("/{org}/{project}/{tl:[0-9]+}/tasks", h.List).Methods(http.MethodGet)
	r.HandleFunc("/{org}/{project}/{tl:[0-9]+}/tasks/new", h.New).Methods(http.MethodGet)
	r.HandleFunc("/{org}/{project}/{tl:[0-9]+}/tasks/new", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/{org}/{project}/{tl:[0-9]+}/tasks/{task:[0-9]+}", h.Show).Methods(http.MethodGet)
	r.HandleFunc("/{org}/{project}/{tl:[0-9]+}/tasks/{task:[0-9]+}/comment", h.Comment).Methods(http.MethodPost)
}

func taskURL(s *web.Scope, task *domain.Task) string {
	return fmt.Sprintf("/%s/%s/%d/tasks/%d", s.Organisation.Slug, s.Project.Slug, s.TaskList.Sequence, task.Sequence)
}

func location(s *web.Scope) service.Location {
	return service.Location{Organisation: s.Organisation, Project: s.Project, TaskList: s.TaskList}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthTaskList)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	tasks, err := h.access.Visibility.Tasks.ListByTaskLists(r.Context(), []string{scope.TaskList.ID})
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	if web.WantsJSON(r) {
		items := make([]Item, 0, len(tasks))
		for _, t := range tasks {
			items = append(items, Item{ID: t.Sequence, Name: t.Title})
		}
		h.site.JSON(w, http.StatusOK, map[string]interface{}{"result": items})
		return
	}
	h.site.Render(w, r, http.StatusOK, "tasks", web.View{
		Title: scope.TaskList.Name,
		Data:  ListPage{Scope: scope, Tasks: tasks},
	})
}

func (h *Handler) New(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthTaskList)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	h.renderNew(w, r, scope, web.View{Form: map[string]string{"status": string(domain.StatusNew)}}, nil)
}

func (h *Handler) renderNew(w http.ResponseWriter, r *http.Request, scope *web.Scope, view web.View, formErr error) {
	assignees, err := h.tasks.AssignableUsers(r.Context(), scope.Project)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	view.Title = "New task"
	view.Data = FormPage{Scope: scope, Assignees: assignees}
	if formErr != nil {
		h.site.FormError(w, r, "task_new", view, formErr)
		return
	}
	h.site.Render(w, r, http.StatusOK, "task_new", view)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthTaskList)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	var form taskForm
	err = web.DecodeForm(r, &form)
	if err == nil {
		userID, _ := web.UserID(r.Context())
		var t *domain.Task
		t, err = h.tasks.Create(r.Context(), userID, location(scope), form.Title, form.Status, form.AssignedTo)
		if err == nil {
			h.site.Redirect(w, r, taskURL(scope, t), web.Flash{Level: web.FlashSuccess, Message: "Task created."})
			return
		}
	}
	h.renderNew(w, r, scope, web.View{Form: web.FormValues(r)}, err)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthTask)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	if web.WantsJSON(r) {
		h.site.JSON(w, http.StatusOK, Item{ID: scope.Task.Sequence, Name: scope.Task.Title})
		return
	}
	h.renderShow(w, r, scope, web.View{}, nil)
}

func (h *Handler) renderShow(w http.ResponseWriter, r *http.Request, scope *web.Scope, view web.View, formErr error) {
	ctx := r.Context()
	followUps, err := h.tasks.FollowUps(ctx, scope.Task)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	assignees, err := h.tasks.AssignableUsers(ctx, scope.Project)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	if view.Form == nil {
		view.Form = map[string]string{"status": string(scope.Task.Status), "assigned_to": scope.Task.AssigneeID}
	}
	view.Title = scope.Task.Title
	view.Data = ShowPage{Scope: scope, FollowUps: followUps, Assignees: assignees}
	if formErr != nil {
		h.site.FormError(w, r, "task", view, formErr)
		return
	}
	h.site.Render(w, r, http.StatusOK, "task", view)
}

// Comment appends a follow-up to the task.
func (h *Handler) Comment(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthTask)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	var form commentForm
	err = web.DecodeForm(r, &form)
	if err == nil {
		var t *domain.Task
		t, err = h.tasks.AddFollowUp(r.Context(), web.CurrentUser(r.Context()), location(scope), scope.Task, form.Message, form.Status, form.AssignedTo)
		if err == nil {
			h.site.Redirect(w, r, taskURL(scope, t), web.Flash{Level: web.FlashSuccess, Message: "Follow-up added."})
			return
		}
	}
	h.renderShow(w, r, scope, web.View{Form: web.FormValues(r)}, err)
}

// MailLink is the target of the link in assignment emails.
func (h *Handler) MailLink(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthTask)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	http.Redirect(w, r, taskURL(scope, scope.Task), http.StatusFound)
}
