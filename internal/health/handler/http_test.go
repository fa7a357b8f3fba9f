package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestServeHTTP(t *testing.T) {
	ok := CheckerFunc(func(context.Context) error { return nil })
	down := CheckerFunc(func(context.Context) error { return errors.New("connection refused") })

	testCases := []struct {
		name   string
		checks map[string]Checker
		want   int
		body   string
	}{
		{"all healthy", map[string]Checker{"database": ok, "policy": ok}, http.StatusOK, `"status":"ok"`},
		{"database down", map[string]Checker{"database": down, "policy": ok}, http.StatusServiceUnavailable, "connection refused"},
		{"no checks", nil, http.StatusOK, `"status":"ok"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewServer(tc.checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
			if !strings.Contains(rec.Body.String(), tc.body) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tc.body)
			}
		})
	}
}
