package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker reports whether a dependency is usable.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server answers readiness probes by running every named check.
type Server struct {
	checks  map[string]Checker
	timeout time.Duration
}

// NewServer returns a health server running checks with a 2s deadline.
func NewServer(checks map[string]Checker) *Server {
	return &Server{checks: checks, timeout: 2 * time.Second}
}

// ServeHTTP answers 200 when every check passes and 503 otherwise.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	resp := response{Status: "ok", Checks: make(map[string]string, len(s.checks))}
	status := http.StatusOK
	for name, c := range s.checks {
		if err := c.HealthCheck(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
