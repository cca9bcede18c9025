package cors

import (
	"sync"

	"github.com/benvon/corsgate/internal/logger"
	"go.uber.org/zap"
)

// Request is the read side of an incoming request.
type Request interface {
	// Header returns the named request header and whether it was present.
	Header(name string) (string, bool)
	Method() string
}

// Response is the write side of the response being built.
type Response interface {
	SetHeader(name, value string)
	// Finalize completes the response without calling the next handler.
	Finalize(status int, body string)
}

// Handler is a pipeline stage. next must be called at most once.
type Handler func(req Request, res Response, next func())

// Registrar accepts middleware into a request pipeline.
type Registrar interface {
	Use(h Handler)
}

// Policy is the process-wide CORS policy: configuration, origins and
// counters. It is safe for concurrent use. The zero value is not usable;
// create one with NewPolicy.
type Policy struct {
	log *zap.Logger

	mu          sync.RWMutex
	initialized bool
	registered  bool
	cfg         PolicyConfig
	origins     *OriginSet

	stats StatsCounter
}

// NewPolicy creates an uninitialized policy. A nil logger discards output.
func NewPolicy(log *zap.Logger) *Policy {
	if log == nil {
		log = zap.NewNop()
	}
	return &Policy{log: log}
}

// Init configures the policy and, on success, registers its middleware with
// reg (once per Policy; reg may be nil). On failure nothing is registered and
// the policy stays uninitialized.
func (p *Policy) Init(opts *Options, reg Registrar) error {
	p.mu.Lock()
	if p.initialized {
		p.mu.Unlock()
		p.log.Error("cors_init_failed", zap.Error(ErrAlreadyInitialized))
		return &InitError{Kind: KindConfiguration, Err: ErrAlreadyInitialized}
	}

	origins := NewOriginSet()
	for _, origin := range opts.initialOrigins() {
		if origins.Add(origin) == AddFailed {
			p.mu.Unlock()
			origins.Clear()
			p.log.Error("cors_init_failed",
				zap.Error(ErrOriginSetPopulate),
				zap.String("origin", origin),
			)
			return &InitError{Kind: KindResource, Origin: origin, Err: ErrOriginSetPopulate}
		}
	}

	cfg := NewPolicyConfig(opts)
	if cfg.AllowCredentials && origins.AllowsAll() {
		p.mu.Unlock()
		origins.Clear()
		p.log.Error("cors_init_failed",
			zap.Error(ErrCredentialsWithWildcard),
			zap.String("hint", "specify explicit origins when allowing credentials"),
		)
		return &InitError{Kind: KindConfiguration, Err: ErrCredentialsWithWildcard}
	}

	p.cfg = cfg
	p.origins = origins
	p.stats.Reset()
	p.initialized = true
	register := reg != nil && !p.registered
	if register {
		p.registered = true
	}
	p.mu.Unlock()

	if register {
		reg.Use(p.Handle)
	}

	p.log.Info("cors_policy_initialized",
		zap.Strings("origins", origins.Origins()),
		zap.Bool("allow_all_origins", origins.AllowsAll()),
		zap.String("allowed_methods", cfg.AllowedMethods),
		zap.String("allowed_headers", cfg.AllowedHeaders),
		zap.Bool("allow_credentials", cfg.AllowCredentials),
		zap.Int("max_age", cfg.MaxAge),
	)
	return nil
}

// Shutdown releases the origin set and resets configuration and counters.
// It is idempotent; the policy may be initialized again afterwards.
func (p *Policy) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.origins != nil {
		p.origins.Clear()
	}
	p.origins = nil
	p.cfg = PolicyConfig{MaxAge: DefaultMaxAge}
	p.stats.Reset()
	if p.initialized {
		p.log.Info("cors_policy_shutdown")
	}
	p.initialized = false
}

// Initialized reports whether Init has succeeded since the last Shutdown.
func (p *Policy) Initialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// snapshot returns the live config and origin set, or ok=false when disabled.
func (p *Policy) snapshot() (cfg PolicyConfig, origins *OriginSet, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg, p.origins, p.initialized
}

// Config returns the resolved configuration.
func (p *Policy) Config() (PolicyConfig, bool) {
	cfg, _, ok := p.snapshot()
	return cfg, ok
}

// Evaluate computes and records the decision for one request without
// touching any response. It reports ok=false when the policy is disabled.
func (p *Policy) Evaluate(origin string, hasOrigin bool, method string) (Decision, bool) {
	cfg, origins, ok := p.snapshot()
	if !ok {
		return Decision{}, false
	}
	d := Evaluate(cfg, origins, origin, hasOrigin, method)
	p.stats.Record(d)
	return d, true
}

// Handle is the pipeline middleware. When the policy is disabled it calls
// next without touching the response.
func (p *Policy) Handle(req Request, res Response, next func()) {
	origin, hasOrigin := req.Header(HeaderOrigin)
	d, ok := p.Evaluate(origin, hasOrigin, req.Method())
	if !ok {
		next()
		return
	}

	if d.Rejected() {
		p.log.Debug("cors_origin_rejected",
			zap.String("outcome", d.Outcome.String()),
			zap.String("origin", logger.SanitizeOrigin(origin)),
		)
	}

	for _, h := range d.Headers {
		res.SetHeader(h.Name, h.Value)
	}
	if d.ShortCircuit {
		res.Finalize(d.Status, d.Body)
		return
	}
	next()
}

// AddOrigin allows origin at runtime. Adding "*" while credentials are
// allowed is refused with ErrCredentialsWithWildcard.
func (p *Policy) AddOrigin(origin string) error {
	if origin == "" {
		return ErrInvalidOrigin
	}
	cfg, origins, ok := p.snapshot()
	if !ok {
		return ErrNotInitialized
	}
	if origin == Wildcard && cfg.AllowCredentials {
		return ErrCredentialsWithWildcard
	}

	switch origins.Add(origin) {
	case Added:
		p.log.Info("cors_origin_added", zap.String("origin", origin))
		return nil
	case AlreadyPresent:
		return ErrOriginExists
	default:
		return ErrInvalidOrigin
	}
}

// RemoveOrigin disallows origin at runtime.
func (p *Policy) RemoveOrigin(origin string) error {
	if origin == "" {
		return ErrInvalidOrigin
	}
	_, origins, ok := p.snapshot()
	if !ok {
		return ErrNotInitialized
	}
	if origins.Remove(origin) == NotFound {
		return ErrOriginNotFound
	}
	p.log.Info("cors_origin_removed", zap.String("origin", origin))
	return nil
}

// IsOriginAllowed reports whether origin would be allowed. It is false for
// empty origins and before Init.
func (p *Policy) IsOriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	_, origins, ok := p.snapshot()
	if !ok {
		return false
	}
	return origins.Contains(origin)
}

// Origins returns the configured origins in insertion order.
func (p *Policy) Origins() []string {
	_, origins, ok := p.snapshot()
	if !ok {
		return nil
	}
	return origins.Origins()
}

// Stats returns the counters plus origin-set details. It is zero before Init.
func (p *Policy) Stats() Stats {
	_, origins, ok := p.snapshot()
	if !ok {
		return Stats{}
	}
	s := p.stats.Snapshot()
	s.ConfiguredOrigins = origins.Count()
	s.AllowAll = origins.AllowsAll()
	return s
}

// ResetStats zeroes the counters. It is a no-op before Init.
func (p *Policy) ResetStats() {
	if !p.Initialized() {
		return
	}
	p.stats.Reset()
}
