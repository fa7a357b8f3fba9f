package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"titan/internal/identity/service"
	"titan/internal/platform/usererr"
	"titan/internal/security"
	"titan/internal/web"
)

type loginForm struct {
	Email    string `schema:"email" validate:"required,email"`
	Password string `schema:"password" validate:"required"`
	Next     string `schema:"next"`
}

type registerForm struct {
	Name     string `schema:"name" validate:"max=128"`
	Email    string `schema:"email" validate:"required,email"`
	Password string `schema:"password" validate:"required,min=8"`
}

// Handler serves sign-in, registration and sign-out.
type Handler struct {
	auth *service.AuthService
	site *web.Site
}

// NewHandler returns the identity HTTP handler.
func NewHandler(auth *service.AuthService, site *web.Site) *Handler {
	return &Handler{auth: auth, site: site}
}

// Routes mounts the public routes on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/login", h.LoginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/register", h.RegisterForm).Methods(http.MethodGet)
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if web.CurrentUser(r.Context()) != nil {
		http.Redirect(w, r, SafeNext(r.URL.Query().Get("next")), http.StatusFound)
		return
	}
	h.site.Render(w, r, http.StatusOK, "login", web.View{
		Title: "Sign in",
		Form:  map[string]string{"next": r.URL.Query().Get("next")},
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	view := web.View{Title: "Sign in"}
	if err := web.DecodeForm(r, &form); err != nil {
		view.Form = web.FormValues(r)
		h.site.FormError(w, r, "login", view, err)
		return
	}
	view.Form = web.FormValues(r)
	res, err := h.auth.Login(r.Context(), form.Email, form.Password, web.ClientIP(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			err = usererr.Wrap(err)
		}
		h.site.FormError(w, r, "login", view, err)
		return
	}
	if err := h.site.Cookies().SetSession(w, res.Token, res.ExpiresAt); err != nil {
		h.site.Fail(w, r, err)
		return
	}
	http.Redirect(w, r, SafeNext(form.Next), http.StatusFound)
}

func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.site.Render(w, r, http.StatusOK, "register", web.View{Title: "Create an account"})
}

// Register creates the account and signs the new user in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var form registerForm
	view := web.View{Title: "Create an account"}
	err := web.DecodeForm(r, &form)
	view.Form = web.FormValues(r)
	if err != nil {
		h.site.FormError(w, r, "register", view, err)
		return
	}
	ctx := r.Context()
	if _, err := h.auth.Register(ctx, form.Email, form.Password, form.Name); err != nil {
		if errors.Is(err, service.ErrEmailAlreadyRegistered) || errors.Is(err, service.ErrInvalidEmail) || errors.Is(err, security.ErrWeakPassword) {
			err = usererr.Wrap(err)
		}
		h.site.FormError(w, r, "register", view, err)
		return
	}
	res, err := h.auth.Login(ctx, form.Email, form.Password, web.ClientIP(ctx))
	if err != nil {
		h.site.Fail(w, r, err)
		return
	}
	if err := h.site.Cookies().SetSession(w, res.Token, res.ExpiresAt); err != nil {
		h.site.Fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/getting-started/", http.StatusFound)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), h.site.Cookies().SessionToken(r)); err != nil {
		h.site.Fail(w, r, err)
		return
	}
	h.site.Cookies().ClearSession(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// SafeNext returns next when it is a local path, and "/" otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return next
}
