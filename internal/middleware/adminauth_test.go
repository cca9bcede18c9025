package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benvon/corsgate/internal/request"
	"go.uber.org/zap"
)

var testSecret = []byte("test-admin-secret")

func TestIssueAndVerifyAdminToken(t *testing.T) {
	t.Parallel()

	token, err := IssueAdminToken(testSecret, "ops@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueAdminToken failed: %v", err)
	}
	claims, err := VerifyAdminToken(testSecret, token)
	if err != nil {
		t.Fatalf("VerifyAdminToken failed: %v", err)
	}
	if claims.Subject != "ops@example.com" || claims.Issuer != AdminTokenIssuer || claims.TokenID == "" {
		t.Errorf("Unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.After(time.Now()) {
		t.Errorf("Expected future expiry, got %v", claims.ExpiresAt)
	}

	if _, err := VerifyAdminToken([]byte("other-secret"), token); err == nil {
		t.Error("Expected verification to fail with a different secret")
	}
}

func TestIssueAdminToken_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secret  []byte
		subject string
		ttl     time.Duration
	}{
		{"empty secret", nil, "ops", time.Hour},
		{"empty subject", testSecret, "", time.Hour},
		{"zero ttl", testSecret, "ops", 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := IssueAdminToken(tt.secret, tt.subject, tt.ttl); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestAdminAuth(t *testing.T) {
	t.Parallel()

	valid, err := IssueAdminToken(testSecret, "ops@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueAdminToken failed: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var subject string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if c := request.AdminFromContext(r); c != nil {
					subject = c.Subject
				}
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/admin/v1/origins", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			AdminAuth(testSecret, zap.NewNop())(handler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusOK && subject != "ops@example.com" {
				t.Errorf("Expected subject in context, got %q", subject)
			}
		})
	}
}

func TestSetAdminInContext(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(SetAdminInContext(req.Context(), "tester"))
	if got := request.Actor(req); got != "tester" {
		t.Errorf("Expected actor tester, got %q", got)
	}
}
