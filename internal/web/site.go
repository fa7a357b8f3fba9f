// Package web holds the HTML rendering, cookie, form and error helpers shared by every HTTP handler.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/microcosm-cc/bluemonday"

	"titan/internal/logger"
	"titan/internal/platform/rbac"
	"titan/internal/platform/usererr"
	taskdomain "titan/internal/task/domain"
	userdomain "titan/internal/user/domain"
)

// Templates holds the layout and page templates.
//
//go:embed templates
var Templates embed.FS

const layout = "templates/layout.html"

// View is the data every page template receives.
type View struct {
	Title   string
	User    *userdomain.User
	Flashes []Flash
	// Form holds submitted values so a re-rendered form keeps the user's input.
	Form   map[string]string
	Errors map[string]string
	Data   interface{}
}

// Site renders pages and maps handler errors to responses.
type Site struct {
	pages   map[string]*template.Template
	cookies *Cookies
	log     *logger.Logger
}

// NewSite parses every page under templates/pages of fsys against the layout.
func NewSite(fsys fs.FS, cookies *Cookies, log *logger.Logger) (*Site, error) {
	if log == nil {
		log = logger.NewNop()
	}
	names, err := fs.Glob(fsys, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	s := &Site{pages: make(map[string]*template.Template, len(names)), cookies: cookies, log: log.Named("web")}
	for _, name := range names {
		page := strings.TrimSuffix(path.Base(name), ".html")
		tpl, err := template.New(path.Base(layout)).Funcs(funcs).ParseFS(fsys, layout, name)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", page, err)
		}
		s.pages[page] = tpl
	}
	if _, ok := s.pages["error"]; !ok {
		return nil, errors.New("templates: error page missing")
	}
	return s, nil
}

var ugc = bluemonday.UGCPolicy()

var funcs = template.FuncMap{
	// markup renders user-written HTML such as follow-up messages.
	"markup":   func(s string) template.HTML { return template.HTML(ugc.Sanitize(s)) },
	"statuses": func() []taskdomain.Status { return taskdomain.Statuses },
	"field": func(m map[string]string, name string) string {
		if m == nil {
			return ""
		}
		return m[name]
	},
}

// Cookies returns the session and flash cookie helpers.
func (s *Site) Cookies() *Cookies { return s.cookies }

// Render writes page with status. The signed-in user and queued flashes are added to v.
func (s *Site) Render(w http.ResponseWriter, r *http.Request, status int, page string, v View) {
	tpl, ok := s.pages[page]
	if !ok {
		s.Fail(w, r, fmt.Errorf("unknown page %q", page))
		return
	}
	v.User = CurrentUser(r.Context())
	v.Flashes = append(s.cookies.PopFlashes(w, r), v.Flashes...)
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, v); err != nil {
		s.log.Error("render failed", "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Redirect queues flashes and redirects with 302.
func (s *Site) Redirect(w http.ResponseWriter, r *http.Request, url string, flashes ...Flash) {
	for _, f := range flashes {
		if err := s.cookies.AddFlash(w, r, f); err != nil {
			s.log.Warn("flash cookie failed", "error", err)
		}
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// FormError re-renders page with a flash when err is something the user can fix,
// and falls back to Fail otherwise.
func (s *Site) FormError(w http.ResponseWriter, r *http.Request, page string, v View, err error) {
	v, ok := WithError(v, err)
	if !ok {
		s.Fail(w, r, err)
		return
	}
	s.Render(w, r, http.StatusOK, page, v)
}

// WithError adds the flash and field errors for err to v. ok is false when err is
// not something the user can fix.
func WithError(v View, err error) (View, bool) {
	msg, ok := FlashMessage(err)
	if !ok {
		return v, false
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		v.Errors = verr.Fields
	}
	v.Flashes = append(v.Flashes, Flash{Level: FlashError, Message: msg})
	return v, true
}

// Fail answers 404 for rbac.ErrNotFound, 403 for rbac.ErrForbidden and 500 for
// anything else. 500s are logged and reported to Sentry.
func (s *Site) Fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		s.log.WithRequest(r.Method, r.URL.Path).Error("request failed", "error", err)
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
	}
	if WantsJSON(r) {
		s.JSON(w, status, map[string]string{"error": http.StatusText(status)})
		return
	}
	s.Render(w, r, status, "error", View{Title: http.StatusText(status), Data: status})
}

// JSON writes v as a JSON body with status.
func (s *Site) JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode json failed", "error", err)
	}
}

// StatusOf maps err to an HTTP status code.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, rbac.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rbac.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// FlashMessage returns the message to flash for errors the user can correct.
func FlashMessage(err error) (string, bool) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error(), true
	case errors.Is(err, rbac.ErrPermissionDenied):
		return "You do not have permission to do that.", true
	}
	return usererr.Message(err)
}

// WantsJSON reports whether the request asked for the JSON variant of a page.
func WantsJSON(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// FormValues copies the submitted form for re-rendering.
func FormValues(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.PostForm))
	for k, vs := range r.PostForm {
		if len(vs) > 0 && k != "password" {
			out[k] = vs[0]
		}
	}
	return out
}
