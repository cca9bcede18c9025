package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/corsgate/internal/cors"
)

type staticPolicy bool

func (s staticPolicy) Initialized() bool { return bool(s) }

func TestHealthChecker_BasicMode(t *testing.T) {
	t.Parallel()

	// Basic mode never touches dependencies.
	h := NewHealthChecker(staticPolicy(false))
	h.AddCheck("database", PingFunc(func(context.Context) error { return errors.New("down") }))

	rr := httptest.NewRecorder()
	h.HealthCheck(rr, httptest.NewRequest("GET", "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got %q", resp.Status)
	}
	if resp.Checks != nil {
		t.Errorf("Expected no checks in basic mode, got %v", resp.Checks)
	}
	if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
		t.Errorf("Timestamp %q is not RFC3339: %v", resp.Timestamp, err)
	}
}

func TestHealthChecker_ExtendedMode(t *testing.T) {
	t.Parallel()

	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name        string
		initialized bool
		checks      map[string]Pinger
		wantStatus  int
		wantChecks  map[string]string
	}{
		{
			name:        "policy only",
			initialized: true,
			wantStatus:  http.StatusOK,
			wantChecks:  map[string]string{"cors_policy": "healthy"},
		},
		{
			name:        "all dependencies healthy",
			initialized: true,
			checks:      map[string]Pinger{"database": ok, "redis": ok, "rabbitmq": ok},
			wantStatus:  http.StatusOK,
			wantChecks: map[string]string{
				"cors_policy": "healthy",
				"database":    "healthy",
				"redis":       "healthy",
				"rabbitmq":    "healthy",
			},
		},
		{
			name:        "redis down",
			initialized: true,
			checks:      map[string]Pinger{"database": ok, "redis": down},
			wantStatus:  http.StatusServiceUnavailable,
			wantChecks: map[string]string{
				"cors_policy": "healthy",
				"database":    "healthy",
				"redis":       "unhealthy: connection refused",
			},
		},
		{
			name:        "policy not initialized",
			initialized: false,
			wantStatus:  http.StatusServiceUnavailable,
			wantChecks:  map[string]string{"cors_policy": "unhealthy: policy not initialized"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(staticPolicy(tt.initialized))
			for name, p := range tt.checks {
				h.AddCheck(name, p)
			}
			h.AddCheck("ignored", nil)

			rr := httptest.NewRecorder()
			h.HealthCheck(rr, httptest.NewRequest("GET", "/healthz?mode=extended", nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			wantOverall := "healthy"
			if tt.wantStatus != http.StatusOK {
				wantOverall = "unhealthy"
			}
			if resp.Status != wantOverall {
				t.Errorf("Expected status %q, got %q", wantOverall, resp.Status)
			}
			if len(resp.Checks) != len(tt.wantChecks) {
				t.Errorf("Expected checks %v, got %v", tt.wantChecks, resp.Checks)
			}
			for name, want := range tt.wantChecks {
				if resp.Checks[name] != want {
					t.Errorf("Check %q = %q, want %q", name, resp.Checks[name], want)
				}
			}
		})
	}
}

func TestHealthChecker_Timeout(t *testing.T) {
	t.Parallel()

	slow := PingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h := NewHealthChecker(staticPolicy(true))
	h.AddCheck("rabbitmq", slow)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest("GET", "/healthz?mode=extended", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	h.HealthCheck(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "unhealthy: timed out") {
		t.Errorf("Expected timeout in body, got %s", rr.Body.String())
	}
}

func TestHealthChecker_LivePolicy(t *testing.T) {
	t.Parallel()

	policy := cors.NewPolicy(nil)
	h := NewHealthChecker(policy)

	check := func() int {
		rr := httptest.NewRecorder()
		h.HealthCheck(rr, httptest.NewRequest("GET", "/healthz?mode=extended", nil))
		return rr.Code
	}
	if code := check(); code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before Init, got %d", code)
	}
	if err := policy.Init(nil, nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if code := check(); code != http.StatusOK {
		t.Errorf("Expected 200 after Init, got %d", code)
	}
	policy.Shutdown()
	if code := check(); code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 after Shutdown, got %d", code)
	}
}

func TestHealthChecker_DatabaseIntegration(t *testing.T) {
	t.Skip("Requires database connection - implement with testcontainers or integration test setup")
}
