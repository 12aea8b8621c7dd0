package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	storeName string
	store     HealthChecker
	cache     HealthChecker
}

// NewHealthHandler creates a new HealthHandler. storeName labels the store
// check (postgres, mongo or memory). Pass nil for store or cache if they are
// not configured.
func NewHealthHandler(storeName string, store, cache HealthChecker) *HealthHandler {
	if storeName == "" {
		storeName = "store"
	}
	return &HealthHandler{
		storeName: storeName,
		store:     store,
		cache:     cache,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint. It performs no dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe endpoint.
// It returns 200 only if every configured dependency answers.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, 2)
	healthy := check(ctx, checks, h.storeName, h.store)
	healthy = check(ctx, checks, "redis", h.cache) && healthy

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, HealthResponse{
		Status: status,
		Checks: checks,
	})
}

func check(ctx context.Context, checks map[string]string, name string, c HealthChecker) bool {
	if c == nil {
		checks[name] = "not configured"
		return true
	}
	if err := c.Ping(ctx); err != nil {
		checks[name] = "error: " + err.Error()
		return false
	}
	checks[name] = "ok"
	return true
}
