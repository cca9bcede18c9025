package cors

import "sync/atomic"

// Stats is a point-in-time view of policy counters.
type Stats struct {
	Total             uint64 `json:"total_requests"`
	Preflight         uint64 `json:"preflight_requests"`
	Allowed           uint64 `json:"allowed_requests"`
	Rejected          uint64 `json:"rejected_requests"`
	ConfiguredOrigins int    `json:"configured_origins"`
	AllowAll          bool   `json:"allow_all_origins"`
}

// StatsCounter holds the request counters. The zero value is ready to use.
type StatsCounter struct {
	total     atomic.Uint64
	preflight atomic.Uint64
	allowed   atomic.Uint64
	rejected  atomic.Uint64
}

// Record counts one evaluated request.
func (c *StatsCounter) Record(d Decision) {
	c.total.Add(1)
	if d.Preflight() {
		c.preflight.Add(1)
	}
	switch {
	case d.Allowed():
		c.allowed.Add(1)
	case d.Rejected():
		c.rejected.Add(1)
	}
}

// Snapshot returns the counters. Origin fields are left zero.
func (c *StatsCounter) Snapshot() Stats {
	return Stats{
		Total:     c.total.Load(),
		Preflight: c.preflight.Load(),
		Allowed:   c.allowed.Load(),
		Rejected:  c.rejected.Load(),
	}
}

// Reset zeroes all counters.
func (c *StatsCounter) Reset() {
	c.total.Store(0)
	c.preflight.Store(0)
	c.allowed.Store(0)
	c.rejected.Store(0)
}
