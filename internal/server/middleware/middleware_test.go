package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	identityservice "titan/internal/identity/service"
	"titan/internal/logger"
	userdomain "titan/internal/user/domain"
	"titan/internal/web"
)

func TestClientIP(t *testing.T) {
	testCases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:5000", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.3"}, "10.0.0.2:5000", "198.51.100.3"},
		{"remote addr", nil, "192.0.2.9:41000", "192.0.2.9"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			h := ClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = web.ClientIP(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

type fakeAuth struct {
	principal *identityservice.Principal
	err       error
}

func (f fakeAuth) Authenticate(context.Context, string) (*identityservice.Principal, error) {
	return f.principal, f.err
}

func sessionRequest(t *testing.T, cookies *web.Cookies) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := cookies.SetSession(rec, "token", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SetSession: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/acme", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	return req
}

func TestAuthenticate(t *testing.T) {
	cookies := web.NewCookies([]byte("0123456789abcdef0123456789abcdef"), false)
	user := &userdomain.User{ID: "u1", Email: "ada@example.com"}

	var seen *userdomain.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = web.CurrentUser(r.Context())
	})

	h := Authenticate(fakeAuth{principal: &identityservice.Principal{User: user, SessionID: "s1"}}, cookies, logger.NewNop())(next)
	h.ServeHTTP(httptest.NewRecorder(), sessionRequest(t, cookies))
	if seen == nil || seen.ID != "u1" {
		t.Fatalf("user = %+v, want u1", seen)
	}

	seen = nil
	rec := httptest.NewRecorder()
	h = Authenticate(fakeAuth{err: identityservice.ErrUnauthenticated}, cookies, logger.NewNop())(next)
	h.ServeHTTP(rec, sessionRequest(t, cookies))
	if seen != nil {
		t.Fatalf("user = %+v, want anonymous", seen)
	}
	if cks := rec.Result().Cookies(); len(cks) != 1 || cks[0].Value != "" {
		t.Fatalf("cookies = %+v, want the session cleared", cks)
	}

	rec = httptest.NewRecorder()
	h = Authenticate(fakeAuth{err: errors.New("db down")}, cookies, logger.NewNop())(next)
	h.ServeHTTP(rec, sessionRequest(t, cookies))
	if seen != nil {
		t.Fatalf("user = %+v, want anonymous", seen)
	}
	if cks := rec.Result().Cookies(); len(cks) != 0 {
		t.Fatalf("cookies = %+v, want none", cks)
	}
}

func TestRequireUser(t *testing.T) {
	called := false
	h := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/acme/web?x=1", nil))
	if rec.Code != http.StatusFound || called {
		t.Fatalf("status = %d, called = %v, want 302 without calling next", rec.Code, called)
	}
	if got, want := rec.Header().Get("Location"), "/login?next=%2Facme%2Fweb%3Fx%3D1"; got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}

	req := httptest.NewRequest(http.MethodGet, "/acme", nil)
	req = req.WithContext(web.WithPrincipal(req.Context(), &userdomain.User{ID: "u1"}, "s1"))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatal("next was not called for a signed-in user")
	}
}

func TestRecover(t *testing.T) {
	h := Recover(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestTelemetry_CountsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	h := Telemetry(m, logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var got float64
	for _, mf := range families {
		if mf.GetName() != "titan_http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			got += metric.GetCounter().GetValue()
			for _, l := range metric.GetLabel() {
				if l.GetName() == "code" && l.GetValue() != "418" {
					t.Fatalf("code = %q, want 418", l.GetValue())
				}
			}
		}
	}
	if got != 1 {
		t.Fatalf("requests = %v, want 1", got)
	}
}
