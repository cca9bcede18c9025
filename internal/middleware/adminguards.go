package middleware

import (
	"context"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultAdminTimeout bounds admin requests, which touch the database and brokers.
const DefaultAdminTimeout = 10 * time.Second

// AdminSecurityHeaders marks admin API responses as non-cacheable JSON that
// must not be framed or sniffed.
func AdminSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects admin writes whose body is not application/json.
// Bodyless writes such as POST /stats/reset pass.
func RequireJSON(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				respondErrorJSON(w, r, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type must be application/json", logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout sets a deadline on the request context.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultAdminTimeout
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
