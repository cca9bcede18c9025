package middleware

import (
	"net/http"

	logpkg "github.com/benvon/corsgate/internal/logger"
	"github.com/benvon/corsgate/internal/request"
	"go.uber.org/zap"
)

// Audit logs security-related events for monitoring and compliance
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Wrap ResponseWriter to capture status code for audit logging
			wrapped := &auditResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			statusCode := wrapped.statusCode
			ip := logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength)
			switch {
			case statusCode == http.StatusForbidden && r.Method == http.MethodOptions:
				logger.Warn("cors_preflight_rejected",
					zap.String("origin", logpkg.SanitizeOrigin(r.Header.Get("Origin"))),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("ip", ip),
					zap.String("request_id", request.RequestID(r.Context())),
				)
			case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
				logger.Warn("security_event",
					zap.Int("status_code", statusCode),
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("ip", ip),
					zap.String("request_id", request.RequestID(r.Context())),
				)
			case statusCode == http.StatusTooManyRequests:
				logger.Warn("rate_limit_violation",
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("ip", ip),
				)
			}
		})
	}
}

// auditResponseWriter wraps http.ResponseWriter to capture status code
type auditResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (aw *auditResponseWriter) WriteHeader(code int) {
	if !aw.wroteHeader {
		aw.statusCode = code
		aw.wroteHeader = true
	}
	aw.ResponseWriter.WriteHeader(code)
}

func (aw *auditResponseWriter) Write(b []byte) (int, error) {
	aw.wroteHeader = true
	return aw.ResponseWriter.Write(b)
}

func (aw *auditResponseWriter) Flush() {
	if f, ok := aw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (aw *auditResponseWriter) Unwrap() http.ResponseWriter {
	return aw.ResponseWriter
}
