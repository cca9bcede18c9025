package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// PolicyStatus reports whether the CORS policy is active.
type PolicyStatus interface {
	Initialized() bool
}

// HealthChecker handles health check requests
type HealthChecker struct {
	policy PolicyStatus
	checks map[string]Pinger
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(policy PolicyStatus) *HealthChecker {
	return &HealthChecker{policy: policy, checks: make(map[string]Pinger)}
}

// AddCheck registers a named dependency for extended mode. Nil pingers are ignored.
func (h *HealthChecker) AddCheck(name string, p Pinger) {
	if p != nil {
		h.checks[name] = p
	}
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
		response.Checks = h.runChecks(r.Context())
		for _, result := range response.Checks {
			if result != "healthy" {
				response.Status = "unhealthy"
				statusCode = http.StatusServiceUnavailable
				break
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func (h *HealthChecker) runChecks(ctx context.Context) map[string]string {
	checks := make(map[string]string, len(h.checks)+1)

	if h.policy != nil && h.policy.Initialized() {
		checks["cors_policy"] = "healthy"
	} else {
		checks["cors_policy"] = "unhealthy: policy not initialized"
	}

	for name, p := range h.checks {
		if err := ping(ctx, p); err != nil {
			checks[name] = "unhealthy: " + err.Error()
		} else {
			checks[name] = "healthy"
		}
	}
	return checks
}

func ping(ctx context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.New("timed out")
		}
		return err
	}
	return nil
}
