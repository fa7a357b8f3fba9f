package web

import (
	"context"

	userdomain "titan/internal/user/domain"
)

type contextKey struct{ name string }

var (
	userKey      = contextKey{"user"}
	sessionIDKey = contextKey{"session_id"}
	clientIPKey  = contextKey{"client_ip"}
)

// WithPrincipal returns a context carrying the signed-in user and their session id.
func WithPrincipal(ctx context.Context, user *userdomain.User, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// CurrentUser returns the signed-in user, or nil for anonymous requests.
func CurrentUser(ctx context.Context) *userdomain.User {
	u, _ := ctx.Value(userKey).(*userdomain.User)
	return u
}

// UserID returns the id of the signed-in user and true if set; otherwise "", false.
func UserID(ctx context.Context) (string, bool) {
	if u := CurrentUser(ctx); u != nil {
		return u.ID, true
	}
	return "", false
}

// SessionID returns the session id of the request and true if set; otherwise "", false.
func SessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok && v != ""
}

// WithClientIP returns a context carrying the client address of the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the client address stored by WithClientIP, or "".
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}
