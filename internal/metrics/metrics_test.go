package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benvon/corsgate/internal/cors"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	stats       cors.Stats
	initialized bool
}

func (f fakeSource) Stats() cors.Stats { return f.stats }
func (f fakeSource) Initialized() bool { return f.initialized }

func TestPolicyCollector(t *testing.T) {
	t.Parallel()

	src := fakeSource{
		stats:       cors.Stats{Total: 5, Preflight: 2, Allowed: 3, Rejected: 1, ConfiguredOrigins: 2},
		initialized: true,
	}
	expected := `
# HELP corsgate_requests_total Requests evaluated by the CORS policy.
# TYPE corsgate_requests_total counter
corsgate_requests_total 5
# HELP corsgate_preflight_requests_total OPTIONS preflight requests evaluated.
# TYPE corsgate_preflight_requests_total counter
corsgate_preflight_requests_total 2
# HELP corsgate_allowed_requests_total Requests from an allowed origin.
# TYPE corsgate_allowed_requests_total counter
corsgate_allowed_requests_total 3
# HELP corsgate_rejected_requests_total Requests from a disallowed origin.
# TYPE corsgate_rejected_requests_total counter
corsgate_rejected_requests_total 1
# HELP corsgate_configured_origins Entries in the allowed origin set.
# TYPE corsgate_configured_origins gauge
corsgate_configured_origins 2
# HELP corsgate_allow_all_origins 1 when the wildcard origin is configured.
# TYPE corsgate_allow_all_origins gauge
corsgate_allow_all_origins 0
# HELP corsgate_policy_initialized 1 when the CORS policy is active.
# TYPE corsgate_policy_initialized gauge
corsgate_policy_initialized 1
`
	if err := testutil.CollectAndCompare(NewPolicyCollector(src), strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestPolicyCollector_Uninitialized(t *testing.T) {
	t.Parallel()

	p := cors.NewPolicy(nil)
	c := NewPolicyCollector(p)
	if n := testutil.CollectAndCount(c); n != 7 {
		t.Errorf("Expected 7 metrics, got %d", n)
	}
}

func TestHandler(t *testing.T) {
	t.Parallel()

	p := cors.NewPolicy(nil)
	if err := p.Init(nil, nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	p.Evaluate("http://a.com", true, http.MethodGet)

	reg, err := NewRegistry(p)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{
		"corsgate_requests_total 1",
		"corsgate_allowed_requests_total 1",
		"corsgate_allow_all_origins 1",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}
