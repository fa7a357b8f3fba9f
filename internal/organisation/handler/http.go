package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"titan/internal/organisation/domain"
	"titan/internal/organisation/service"
	"titan/internal/platform/rbac"
	"titan/internal/visibility"
	"titan/internal/web"
)

type createForm struct {
	Name string `schema:"name" validate:"required,max=128"`
	Slug string `schema:"slug" validate:"max=64"`
}

type teamForm struct {
	Name string `schema:"name" validate:"required,max=128"`
}

type memberForm struct {
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

// Handler serves the home page, the organisation list and organisation pages.
type Handler struct {
	orgs   *service.Service
	access rbac.Repos
	site   *web.Site
}

// NewHandler returns the organisation HTTP handler.
func NewHandler(orgs *service.Service, access rbac.Repos, site *web.Site) *Handler {
	return &Handler{orgs: orgs, access: access, site: site}
}

// PublicRoutes mounts the routes anonymous users may reach.
func (h *Handler) PublicRoutes(r *mux.Router) {
	r.HandleFunc("/", h.Home).Methods(http.MethodGet)
}

// Routes mounts the routes for signed-in users. {org} routes must come after every
// fixed top-level path.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/my-organisations/", h.List).Methods(http.MethodGet)
	r.HandleFunc("/my-organisations/", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/getting-started/", h.GettingStarted).Methods(http.MethodGet)
	r.HandleFunc("/+slug-check", h.SlugCheck).Methods(http.MethodPost)
}

// MemberRoutes mounts the membership actions. They share their shape with
// /{org}/{project} and must be mounted before the project routes.
func (h *Handler) MemberRoutes(r *mux.Router) {
	r.HandleFunc("/{org}/invitation", h.Invite).Methods(http.MethodPost)
	r.HandleFunc("/{org}/remove", h.Remove).Methods(http.MethodPost)
}

// OrganisationRoutes mounts the /{org} routes.
func (h *Handler) OrganisationRoutes(r *mux.Router) {
	r.HandleFunc("/{org}", h.Show).Methods(http.MethodGet)
	r.HandleFunc("/{org}", h.AddTeam).Methods(http.MethodPost)
}

// Home shows the dashboard to signed-in users and the landing page otherwise.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	userID, ok := web.UserID(r.Context())
	if !ok {
		h.site.Render(w, r, http.StatusOK, "landing", web.View{Title: "Titan"})
		return
	}
	dash, err := visibility.Dashboard(r.Context(), h.access.Visibility, userID)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	h.site.Render(w, r, http.StatusOK, "dashboard", web.View{Title: "Dashboard", Data: dash})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, web.View{})
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, view web.View) {
	userID, _ := web.UserID(r.Context())
	orgs, err := visibility.VisibleOrganisations(r.Context(), h.access.Visibility, userID)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	if web.WantsJSON(r) {
		items := make([]Item, 0, len(orgs))
		for _, o := range orgs {
			items = append(items, Item{ID: o.Slug, Name: o.Name})
		}
		h.site.JSON(w, http.StatusOK, map[string]interface{}{"result": items})
		return
	}
	view.Title = "My organisations"
	view.Data = orgs
	h.site.Render(w, r, http.StatusOK, "organisations", view)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var form createForm
	err := web.DecodeForm(r, &form)
	view := web.View{Form: web.FormValues(r)}
	if err != nil {
		h.formError(w, r, view, err)
		return
	}
	userID, _ := web.UserID(r.Context())
	org, err := h.orgs.Create(r.Context(), userID, form.Name, form.Slug)
	if err != nil {
		h.formError(w, r, view, err)
		return
	}
	h.site.Redirect(w, r, "/"+org.Slug, web.Flash{Level: web.FlashSuccess, Message: "Organisation created."})
}

// formError re-renders the organisation list, which carries the create form.
func (h *Handler) formError(w http.ResponseWriter, r *http.Request, view web.View, err error) {
	view, ok := web.WithError(view, err)
	if !ok {
		h.site.Fail(w, r, err)
		return
	}
	h.renderList(w, r, view)
}

// gettingStarted lists the navigation organisations and marks, by id, those
// holding a project the user can open.
type gettingStarted struct {
	Organisations []*domain.Organisation
	HasProjects   map[string]bool
}

func (h *Handler) GettingStarted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := web.UserID(ctx)
	orgs, err := visibility.VisibleOrganisations(ctx, h.access.Visibility, userID)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	reachable, err := visibility.ReachableOrganisations(ctx, h.access.Visibility, userID)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	data := gettingStarted{Organisations: orgs, HasProjects: make(map[string]bool, len(reachable))}
	for _, o := range reachable {
		data.HasProjects[o.ID] = true
	}
	h.site.Render(w, r, http.StatusOK, "getting_started", web.View{Title: "Getting started", Data: data})
}

func (h *Handler) SlugCheck(w http.ResponseWriter, r *http.Request) {
	var form slugForm
	_ = web.DecodeForm(r, &form)
	ok, err := h.orgs.SlugAvailable(r.Context(), form.Slug)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	h.site.JSON(w, http.StatusOK, ok)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	scope, err := web.Resolve(r, h.access, web.DepthOrganisation)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	if web.WantsJSON(r) {
		h.site.JSON(w, http.StatusOK, Item{ID: scope.Organisation.Slug, Name: scope.Organisation.Name})
		return
	}
	h.renderShow(w, r, scope.Organisation, web.View{})
}

func (h *Handler) renderShow(w http.ResponseWriter, r *http.Request, org *domain.Organisation, view web.View) {
	userID, _ := web.UserID(r.Context())
	overview, err := h.orgs.Overview(r.Context(), userID, org)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	view.Title = org.Name
	view.Data = overview
	h.site.Render(w, r, http.StatusOK, "organisation", view)
}

// orgAction resolves the organisation, decodes form and runs act, re-rendering the
// organisation page with a flash when act fails with something the user can fix.
func (h *Handler) orgAction(w http.ResponseWriter, r *http.Request, form interface{}, success string, act func(org *domain.Organisation, userID string) error) {
	scope, err := web.Resolve(r, h.access, web.DepthOrganisation)
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	org := scope.Organisation
	userID, _ := web.UserID(r.Context())
	err = web.DecodeForm(r, form)
	if err == nil {
		err = act(org, userID)
	}
	if err != nil {
		view, ok := web.WithError(web.View{Form: web.FormValues(r)}, err)
		if !ok {
			h.site.Fail(w, r, err)
			return
		}
		h.renderShow(w, r, org, view)
		return
	}
	h.site.Redirect(w, r, "/"+org.Slug, web.Flash{Level: web.FlashSuccess, Message: success})
}

func (h *Handler) AddTeam(w http.ResponseWriter, r *http.Request) {
	var form teamForm
	h.orgAction(w, r, &form, "Team created.", func(org *domain.Organisation, userID string) error {
		_, err := h.orgs.AddTeam(r.Context(), userID, org, form.Name)
		return err
	})
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	var form memberForm
	h.orgAction(w, r, &form, "User added to Administrators.", func(org *domain.Organisation, userID string) error {
		_, err := h.orgs.Invite(r.Context(), userID, org, form.Email)
		return err
	})
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	var form memberForm
	h.orgAction(w, r, &form, "User removed from the organisation.", func(org *domain.Organisation, userID string) error {
		return h.orgs.RemoveMember(r.Context(), userID, org, form.Email)
	})
}
