package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	identityservice "titan/internal/identity/service"
	"titan/internal/logger"
	"titan/internal/web"
)

// Authenticator resolves a session token to its principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*identityservice.Principal, error)
}

// Authenticate puts the user of a valid session cookie in the request context.
// Requests without a valid session continue anonymously; a stale cookie is cleared.
func Authenticate(auth Authenticator, cookies *web.Cookies, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookies.SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			p, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, identityservice.ErrUnauthenticated) {
					cookies.ClearSession(w)
				} else {
					log.Warn("authenticate failed", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(web.WithPrincipal(r.Context(), p.User, p.SessionID)))
		})
	}
}

// RequireUser redirects anonymous requests to /login with the requested path as next.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if web.CurrentUser(r.Context()) == nil {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
