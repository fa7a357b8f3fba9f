// Package server assembles the HTTP router from the feature handlers.
package server

import (
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"

	"titan/internal/logger"
	"titan/internal/platform/rbac"
	"titan/internal/server/middleware"
	"titan/internal/web"
)

// RouteMounter is a feature handler that registers routes on a router.
type RouteMounter interface {
	Routes(r *mux.Router)
}

// OrganisationRouteMounter registers routes below /{org}.
type OrganisationRouteMounter interface {
	OrganisationRoutes(r *mux.Router)
}

// PublicRouteMounter registers routes served to anonymous visitors.
type PublicRouteMounter interface {
	PublicRoutes(r *mux.Router)
}

// OrganisationHandler mounts the organisation pages, some of them public.
// MemberRoutes holds /{org}/invitation and /{org}/remove.
type OrganisationHandler interface {
	PublicRouteMounter
	RouteMounter
	OrganisationRouteMounter
	MemberRoutes(r *mux.Router)
}

// ProjectHandler mounts the project pages and the invitation link.
type ProjectHandler interface {
	RouteMounter
	OrganisationRouteMounter
}

// TaskHandler mounts the task pages and the mailed comment link.
type TaskHandler interface {
	RouteMounter
	OrganisationRouteMounter
}

// Deps holds everything NewRouter wires together. Metrics, MetricsHandler and
// Health are optional.
type Deps struct {
	Site          *web.Site
	Auth          middleware.Authenticator
	Identity      RouteMounter
	Organisations OrganisationHandler
	Projects      ProjectHandler
	TaskLists     OrganisationRouteMounter
	Tasks         TaskHandler

	Health         http.Handler
	Metrics        *middleware.Metrics
	MetricsHandler http.Handler
	// Sentry enables the sentry-go request hub middleware.
	Sentry bool
	Log    *logger.Logger
}

// NewRouter returns the application handler.
//
// Fixed-prefix routes are registered before the /{org} routes, and deeper
// organisation routes before shallower ones, so that a slug never shadows a
// page such as /login, /my-organisations/ or /{org}/invitation.
func NewRouter(d Deps) http.Handler {
	log := d.Log.Named("http")
	r := mux.NewRouter()
	r.Use(middleware.ClientIP, middleware.Recover(log), middleware.Telemetry(d.Metrics, log))
	if d.Sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.Use(middleware.Authenticate(d.Auth, d.Site.Cookies(), log))

	if d.Health != nil {
		r.Handle("/healthz", d.Health).Methods(http.MethodGet)
	}
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler).Methods(http.MethodGet)
	}
	d.Identity.Routes(r)
	d.Organisations.PublicRoutes(r)

	authed := r.NewRoute().Subrouter()
	authed.Use(middleware.RequireUser)
	d.Organisations.Routes(authed)
	d.Projects.Routes(authed)
	d.Tasks.Routes(authed)
	d.Organisations.MemberRoutes(authed)
	d.Tasks.OrganisationRoutes(authed)
	d.TaskLists.OrganisationRoutes(authed)
	d.Projects.OrganisationRoutes(authed)
	d.Organisations.OrganisationRoutes(authed)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		d.Site.Fail(w, req, rbac.ErrNotFound)
	})
	return r
}
