package proxy

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	logpkg "github.com/benvon/corsgate/internal/logger"
	"github.com/benvon/corsgate/internal/request"
	"go.uber.org/zap"
)

// New returns a reverse proxy to upstream. CORS response headers set by the
// upstream are dropped so the gateway policy is the only source of them.
func New(upstream string, logger *zap.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be an absolute http(s) url", upstream)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if id := request.RequestID(pr.In.Context()); id != "" {
				pr.Out.Header.Set("X-Request-ID", id)
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			StripCORSHeaders(resp.Header)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, r.Context().Err()) {
				// Client went away; nothing useful to send.
				return
			}
			logger.Error("upstream_request_failed",
				zap.String("request_id", request.RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("error", logpkg.SanitizeError(err)),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"bad_gateway","message":"Upstream service unavailable"}` + "\n"))
		},
	}, nil
}

// StripCORSHeaders removes every Access-Control-* header and the Origin
// entry of Vary from h.
func StripCORSHeaders(h http.Header) {
	for key := range h {
		if strings.HasPrefix(key, "Access-Control-") {
			h.Del(key)
		}
	}
	vary := h.Values("Vary")
	if len(vary) == 0 {
		return
	}
	var kept []string
	for _, v := range vary {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" && !strings.EqualFold(part, "Origin") {
				kept = append(kept, part)
			}
		}
	}
	h.Del("Vary")
	if len(kept) > 0 {
		h.Set("Vary", strings.Join(kept, ", "))
	}
}
