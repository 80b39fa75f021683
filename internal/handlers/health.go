package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// DefaultCheckTimeout bounds each dependency check
const DefaultCheckTimeout = 5 * time.Second

// CheckFunc probes one dependency
type CheckFunc func(ctx context.Context) error

// Pinger is satisfied by *database.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthChecker handles health check requests
type HealthChecker struct {
	checks  map[string]CheckFunc
	timeout time.Duration
}

// NewHealthChecker creates a new health checker that always probes the database
func NewHealthChecker(db Pinger) *HealthChecker {
	h := &HealthChecker{checks: make(map[string]CheckFunc), timeout: DefaultCheckTimeout}
	h.AddCheck("database", db.PingContext)
	return h
}

// AddCheck registers a named dependency check for extended mode
func (h *HealthChecker) AddCheck(name string, check CheckFunc) {
	h.checks[name] = check
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	statusCode := http.StatusOK

	if r.URL.Query().Get("mode") == "extended" {
		response.Checks = h.run(r.Context())
		for _, result := range response.Checks {
			if result != "healthy" {
				response.Status = "unhealthy"
				statusCode = http.StatusServiceUnavailable
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// run probes every dependency concurrently
func (h *HealthChecker) run(ctx context.Context) map[string]string {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]string, len(names))
	done := make(chan struct{})
	for i, name := range names {
		go func(i int, check CheckFunc) {
			defer func() { done <- struct{}{} }()
			cctx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()
			if err := check(cctx); err != nil {
				results[i] = "unhealthy: " + sanitizeErrorMessage(err.Error())
				return
			}
			results[i] = "healthy"
		}(i, h.checks[name])
	}
	for range names {
		<-done
	}

	out := make(map[string]string, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}
