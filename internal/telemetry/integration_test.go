package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/corsgate/internal/cors"
	"github.com/benvon/corsgate/internal/middleware"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTraceContextPropagation verifies that requests answered by the CORS
// layer, including short-circuited preflights, are still traced.
func TestTraceContextPropagation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	r := mux.NewRouter()
	r.Use(Middleware())
	policy := cors.NewPolicy(nil)
	if err := policy.Init(&cors.Options{AllowedOrigins: []string{"http://allowed.com"}}, middleware.MuxRegistrar{Router: r}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	r.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		method      string
		origin      string
		traceParent string
		wantStatus  int
	}{
		{"simple request without trace", http.MethodGet, "http://allowed.com", "", http.StatusOK},
		{"allowed preflight with trace", http.MethodOptions, "http://allowed.com", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", http.StatusNoContent},
		{"rejected preflight with trace", http.MethodOptions, "http://evil.com", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			req := httptest.NewRequest(tt.method, "/api/things", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if err := tp.ForceFlush(context.Background()); err != nil {
				t.Errorf("Failed to flush tracer provider: %v", err)
			}

			spans := exporter.GetSpans()
			if len(spans) == 0 {
				t.Fatal("Expected at least one span to be created")
			}
			if tt.traceParent != "" && spans[0].SpanContext.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
				t.Errorf("Expected span to join the incoming trace, got %s", spans[0].SpanContext.TraceID())
			}
		})
	}
}

func TestHandler(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	h := Handler("metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "metrics" {
		t.Errorf("Expected one metrics span, got %v", spans)
	}
}
