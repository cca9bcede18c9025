package middleware

import (
	"net/http"

	"github.com/benvon/corsgate/internal/cors"
	"github.com/gorilla/mux"
)

// CORS adapts a policy pipeline handler to net/http middleware.
func CORS(h cors.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h(httpRequest{r: r}, &httpResponse{w: w}, func() {
				next.ServeHTTP(w, r)
			})
		})
	}
}

// MuxRegistrar installs policy handlers as gorilla/mux middleware.
type MuxRegistrar struct {
	Router *mux.Router
}

// Use implements cors.Registrar.
func (m MuxRegistrar) Use(h cors.Handler) {
	m.Router.Use(CORS(h))
}

type httpRequest struct {
	r *http.Request
}

func (hr httpRequest) Header(name string) (string, bool) {
	values, ok := hr.r.Header[http.CanonicalHeaderKey(name)]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (hr httpRequest) Method() string {
	return hr.r.Method
}

type httpResponse struct {
	w http.ResponseWriter
}

func (hr *httpResponse) SetHeader(name, value string) {
	hr.w.Header().Set(name, value)
}

func (hr *httpResponse) Finalize(status int, body string) {
	if body != "" {
		hr.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	hr.w.WriteHeader(status)
	if body != "" {
		_, _ = hr.w.Write([]byte(body))
	}
}
