package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// readyTimeout bounds all dependency checks of one readiness probe.
const readyTimeout = 3 * time.Second

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	checks map[string]HealthChecker
	names  []string
}

// NewHealthHandler creates a HealthHandler over named dependencies.
// A nil checker is reported as "not configured" and fails readiness.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return &HealthHandler{checks: checks, names: names}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Healthz is the liveness probe. It never touches dependencies.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: Version})
}

// Readyz pings every dependency in parallel and returns 503 if any fails.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	results := make(map[string]string, len(h.names))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range h.names {
		checker := h.checks[name]
		if checker == nil {
			results[name] = "not configured"
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := "ok"
			if err := checker.Ping(ctx); err != nil {
				status = "error: " + err.Error()
			}
			mu.Lock()
			results[name] = status
			mu.Unlock()
		}()
	}
	wg.Wait()

	code := http.StatusOK
	resp := HealthResponse{Status: "ok", Checks: results}
	for _, status := range results {
		if status != "ok" {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, resp)
}
