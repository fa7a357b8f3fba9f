package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"titan/internal/logger"
	"titan/internal/platform/rbac"
	"titan/internal/platform/usererr"
)

func newTestSite(t *testing.T) *Site {
	t.Helper()
	s, err := NewSite(Templates, testCookies(), logger.NewNop())
	if err != nil {
		t.Fatalf("NewSite: %v", err)
	}
	return s
}

func TestStatusOf(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{rbac.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("resolve: %w", rbac.ErrForbidden), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		if got := StatusOf(tc.err); got != tc.want {
			t.Fatalf("StatusOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestFlashMessage(t *testing.T) {
	testCases := []struct {
		err    error
		want   string
		wantOK bool
	}{
		{&ValidationError{Fields: map[string]string{"name": "name is required"}}, "name is required", true},
		{rbac.ErrPermissionDenied, "You do not have permission to do that.", true},
		{usererr.New("Slug taken."), "Slug taken.", true},
		{errors.New("db down"), "", false},
	}
	for _, tc := range testCases {
		got, ok := FlashMessage(tc.err)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("FlashMessage(%v) = %q, %v, want %q, %v", tc.err, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if WantsJSON(req) {
		t.Fatal("WantsJSON = true for a plain request")
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if !WantsJSON(req) {
		t.Fatal("WantsJSON = false for XMLHttpRequest")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json, text/plain")
	if !WantsJSON(req) {
		t.Fatal("WantsJSON = false for Accept: application/json")
	}
}

func TestSite_Fail(t *testing.T) {
	s := newTestSite(t)

	rec := httptest.NewRecorder()
	s.Fail(rec, httptest.NewRequest(http.MethodGet, "/acme", nil), rbac.ErrNotFound)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if !strings.Contains(rec.Body.String(), "does not exist") {
		t.Fatalf("body = %s, want the not found page", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/acme", nil)
	req.Header.Set("Accept", "application/json")
	s.Fail(rec, req, rbac.ErrForbidden)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if got, want := strings.TrimSpace(rec.Body.String()), `{"error":"Forbidden"}`; got != want {
		t.Fatalf("body = %s, want %s", got, want)
	}
}

func TestSite_FormError(t *testing.T) {
	s := newTestSite(t)
	rec := httptest.NewRecorder()
	view := View{Form: map[string]string{"email": "ada@example.com"}}
	s.FormError(rec, httptest.NewRequest(http.MethodPost, "/login", nil), "login", view,
		&ValidationError{Fields: map[string]string{"password": "password is required"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "password is required") || !strings.Contains(body, `value="ada@example.com"`) {
		t.Fatalf("body = %s, want the error and the submitted email", body)
	}

	rec = httptest.NewRecorder()
	s.FormError(rec, httptest.NewRequest(http.MethodPost, "/login", nil), "login", view, errors.New("db down"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestSite_RenderPages(t *testing.T) {
	s := newTestSite(t)
	for _, page := range []string{"landing", "login", "register", "dashboard", "getting_started", "organisations", "error"} {
		rec := httptest.NewRecorder()
		s.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, page, View{Title: page})
		if rec.Code != http.StatusOK {
			t.Fatalf("Render(%s) status = %d, want %d: %s", page, rec.Code, http.StatusOK, rec.Body.String())
		}
	}
}
