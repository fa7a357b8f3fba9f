package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	orgdomain "titan/internal/organisation/domain"
	"titan/internal/platform/rbac"
	"titan/internal/platform/usererr"
	"titan/internal/project/domain"
	"titan/internal/project/service"
	teamdomain "titan/internal/team/domain"
	"titan/internal/visibility"
	"titan/internal/web"
)

type createForm struct {
	Name string `schema:"name" validate:"required,max=128"`
	Slug string `schema:"slug" validate:"max=64"`
	Team string `schema:"team" validate:"required"`
}

type inviteForm struct {
	Email string `schema:"email" validate:"required,email"`
}

type slugForm struct {
	Slug string `schema:"slug"`
}

// Item is the JSON shape of a list entry or detail response.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListPage is the data of the project list, which carries the create form.
type ListPage struct {
	Organisation *orgdomain.Organisation
	Projects     []*domain.Project
	Teams        []*teamdomain.Team
}

// ShowPage is the data of a project page.
type ShowPage struct {
	Organisation    *orgdomain.Organisation
	Project         *domain.Project
	TaskLists       []visibility.TaskListTasks
	IsAdministrator bool
}

// Handler serves project lists, project pages and invitations.
type Handler struct {
	projects *service.Service
	access   rbac.Repos
	site     *web.Site
}

// NewHandler returns the project HTTP handler.
func NewHandler(projects *service.Service, access rbac.Repos, site *web.Site) *Handler {
	return &Handler{projects: projects, access: access, site: site}
}

// Routes mounts the fixed-prefix routes.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/invitation/{key}", h.Accept).Methods(http.MethodGet)
}

// OrganisationRoutes mounts the /{org}/... project routes.
func (h *Handler) OrganisationRoutes(r *mux.Router) {
	r.HandleFunc("/{org}/projects/", h.List).Methods(http.MethodGet)
	r.HandleFunc("/{org}/projects/", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/{org}/+slug-check", h.SlugCheck).Methods(http.MethodPost)
	r.HandleFunc("/{org}/{project}", h.Show).Methods(http.MethodGet)
	r.HandleFunc("/{org}/{project}", h.Invite).Methods(http.MethodPost)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthOrganisation)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	h.renderList(w, r, scope.Organisation, web.View{})
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, org *orgdomain.Organisation, view web.View) {
	ctx := r.Context()
	userID, _ := web.UserID(ctx)
	projects, err := visibility.VisibleProjects(ctx, h.access.Visibility, userID, org.ID)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	if web.WantsJSON(r) {
		items := make([]Item, 0, len(projects))
		for _, p := range projects {
			items = append(items, Item{ID: p.Slug, Name: p.Name})
		}
		h.site.JSON(w, http.StatusOK, map[string]interface{}{"result": items})
		return
	}
	teams, err := h.projects.MemberTeams(ctx, userID, org)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	view.Title = org.Name + " projects"
	view.Data = ListPage{Organisation: org, Projects: projects, Teams: teams}
	h.site.Render(w, r, http.StatusOK, "projects", view)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthOrganisation)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	org := scope.Organisation
	var form createForm
	err = web.DecodeForm(r, &form)
	if err == nil {
		userID, _ := web.UserID(r.Context())
		var p *domain.Project
		p, err = h.projects.Create(r.Context(), userID, org, form.Name, form.Slug, form.Team)
		if err == nil {
			h.site.Redirect(w, r, "/"+org.Slug+"/"+p.Slug, web.Flash{Level: web.FlashSuccess, Message: "Project created."})
			return
		}
	}
	view, ok := web.WithError(web.View{Form: web.FormValues(r)}, err)
	if !ok {
		h.site.Fail(w, r, err)
		return
	}
	h.renderList(w, r, org, view)
}

func (h *Handler) SlugCheck(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthOrganisation)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	var form slugForm
	_ = web.DecodeForm(r, &form)
	ok, err := h.projects.SlugAvailable(r.Context(), scope.Organisation, form.Slug)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	h.site.JSON(w, http.StatusOK, ok)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthProject)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	if web.WantsJSON(r) {
		h.site.JSON(w, http.StatusOK, Item{ID: scope.Project.Slug, Name: scope.Project.Name})
		return
	}
	h.renderShow(w, r, scope, web.View{})
}

func (h *Handler) renderShow(w http.ResponseWriter, r *http.Request, scope *web.Scope, view web.View) {
	ctx := r.Context()
	userID, _ := web.UserID(ctx)
	lists, err := visibility.ProjectTaskLists(ctx, h.access.Visibility, scope.Project.ID)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	isAdmin, err := h.projects.IsAdministrator(ctx, userID, scope.Organisation, scope.Project)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	view.Title = scope.Project.Name
	view.Data = ShowPage{Organisation: scope.Organisation, Project: scope.Project, TaskLists: lists, IsAdministrator: isAdmin}
	h.site.Render(w, r, http.StatusOK, "project", view)
}

// Invite mails a project invitation to the submitted address.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthProject)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	var form inviteForm
	err = web.DecodeForm(r, &form)
	if err == nil {
		err = h.projects.Invite(r.Context(), web.CurrentUser(r.Context()), scope.Organisation, scope.Project, form.Email)
		if err == nil {
			target := "/" + scope.Organisation.Slug + "/" + scope.Project.Slug
			h.site.Redirect(w, r, target, web.Flash{Level: web.FlashSuccess, Message: "Invitation sent to " + form.Email + "."})
			return
		}
	}
	view, ok := web.WithError(web.View{Form: web.FormValues(r)}, err)
	if !ok {
		h.site.Fail(w, r, err)
		return
	}
	h.renderShow(w, r, scope, view)
}

// Accept adds the signed-in user to the project named by the invitation key.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	org, p, err := h.projects.AcceptInvitation(r.Context(), web.CurrentUser(r.Context()), mux.Vars(r)["key"])
	if err != nil {
		if msg, ok := usererr.Message(err); ok {
			h.site.Redirect(w, r, "/", web.Flash{Level: web.FlashError, Message: msg})
			return
		}
		h.site.Fail(w, r, err)
		return
	}
	h.site.Redirect(w, r, "/"+org.Slug+"/"+p.Slug, web.Flash{Level: web.FlashSuccess, Message: "Welcome to " + p.Name + "."})
}
