package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/corsgate/internal/models"
)

type contextKey string

const (
	adminContextKey     contextKey = "admin"
	requestIDContextKey contextKey = "request_id"
)

// AdminContextKey returns the context key used for admin claims. Exposed for tests that inject non-claims values.
func AdminContextKey() contextKey { return adminContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// WithAdmin returns a context with the admin claims attached.
func WithAdmin(ctx context.Context, claims *models.AdminClaims) context.Context {
	return context.WithValue(ctx, adminContextKey, claims)
}

// AdminFromContext returns the admin claims from the request context, or nil if missing or wrong type.
func AdminFromContext(r *http.Request) *models.AdminClaims {
	c, _ := r.Context().Value(adminContextKey).(*models.AdminClaims)
	return c
}

// Actor names who is making the request, for audit trails. It is the token
// subject for authenticated admin calls and the client IP otherwise.
func Actor(r *http.Request) string {
	if c := AdminFromContext(r); c != nil && c.Subject != "" {
		return c.Subject
	}
	return ClientIP(r)
}

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestID returns the request id set by the logging middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
