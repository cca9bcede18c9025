// Package metrics exposes the CORS policy counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/benvon/corsgate/internal/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "corsgate"

// StatsSource is satisfied by *cors.Policy.
type StatsSource interface {
	Stats() cors.Stats
	Initialized() bool
}

// PolicyCollector reads a consistent stats snapshot on every scrape.
type PolicyCollector struct {
	source StatsSource

	total       *prometheus.Desc
	preflight   *prometheus.Desc
	allowed     *prometheus.Desc
	rejected    *prometheus.Desc
	origins     *prometheus.Desc
	allowAll    *prometheus.Desc
	initialized *prometheus.Desc
}

// NewPolicyCollector creates a collector for source.
func NewPolicyCollector(source StatsSource) *PolicyCollector {
	return &PolicyCollector{
		source:      source,
		total:       prometheus.NewDesc(namespace+"_requests_total", "Requests evaluated by the CORS policy.", nil, nil),
		preflight:   prometheus.NewDesc(namespace+"_preflight_requests_total", "OPTIONS preflight requests evaluated.", nil, nil),
		allowed:     prometheus.NewDesc(namespace+"_allowed_requests_total", "Requests from an allowed origin.", nil, nil),
		rejected:    prometheus.NewDesc(namespace+"_rejected_requests_total", "Requests from a disallowed origin.", nil, nil),
		origins:     prometheus.NewDesc(namespace+"_configured_origins", "Entries in the allowed origin set.", nil, nil),
		allowAll:    prometheus.NewDesc(namespace+"_allow_all_origins", "1 when the wildcard origin is configured.", nil, nil),
		initialized: prometheus.NewDesc(namespace+"_policy_initialized", "1 when the CORS policy is active.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *PolicyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.preflight
	ch <- c.allowed
	ch <- c.rejected
	ch <- c.origins
	ch <- c.allowAll
	ch <- c.initialized
}

// Collect implements prometheus.Collector.
func (c *PolicyCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.CounterValue, float64(s.Total))
	ch <- prometheus.MustNewConstMetric(c.preflight, prometheus.CounterValue, float64(s.Preflight))
	ch <- prometheus.MustNewConstMetric(c.allowed, prometheus.CounterValue, float64(s.Allowed))
	ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(s.Rejected))
	ch <- prometheus.MustNewConstMetric(c.origins, prometheus.GaugeValue, float64(s.ConfiguredOrigins))
	ch <- prometheus.MustNewConstMetric(c.allowAll, prometheus.GaugeValue, boolValue(s.AllowAll))
	ch <- prometheus.MustNewConstMetric(c.initialized, prometheus.GaugeValue, boolValue(c.source.Initialized()))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// NewRegistry returns a private registry holding the policy collector plus
// the Go runtime and process collectors.
func NewRegistry(source StatsSource) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{
		NewPolicyCollector(source),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
