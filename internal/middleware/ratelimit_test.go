package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestRateLimit_MemoryStore(t *testing.T) {
	t.Parallel()

	store, err := NewRateLimitStore(nil)
	if err != nil {
		t.Fatalf("NewRateLimitStore failed: %v", err)
	}
	mw, err := RateLimit(store, "2-M", zap.NewNop())
	if err != nil {
		t.Fatalf("RateLimit failed: %v", err)
	}
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/admin/v1/origins", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
		if w.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("Expected X-RateLimit-Limit 2, got %q", w.Header().Get("X-RateLimit-Limit"))
		}
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK || statuses[2] != http.StatusTooManyRequests {
		t.Errorf("Unexpected statuses %v", statuses)
	}

	// A different client has its own budget.
	req := httptest.NewRequest("GET", "/admin/v1/origins", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.8")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected other client to pass, got %d", w.Code)
	}
}

func TestRateLimit_InvalidRate(t *testing.T) {
	t.Parallel()

	store, _ := NewRateLimitStore(nil)
	if _, err := RateLimit(store, "fast", zap.NewNop()); err == nil {
		t.Error("Expected error for malformed rate")
	}
}
