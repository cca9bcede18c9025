package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/corsgate/internal/cors"
	logpkg "github.com/benvon/corsgate/internal/logger"
	"github.com/benvon/corsgate/internal/models"
	"github.com/benvon/corsgate/internal/queue"
	"github.com/benvon/corsgate/internal/telemetry"
	"github.com/benvon/corsgate/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ConfigStore persists the policy configuration row.
type ConfigStore interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
	Set(ctx context.Context, c *models.CorsConfig) error
}

// OriginStore persists the allowed origin set.
type OriginStore interface {
	Origins(ctx context.Context) ([]string, error)
	Add(ctx context.Context, origin, createdBy string) (bool, error)
	Remove(ctx context.Context, origin string) (bool, error)
	ReplaceAll(ctx context.Context, origins []string, createdBy string) error
}

// ChangePublisher broadcasts origin changes to other instances.
type ChangePublisher interface {
	PublishChange(ctx context.Context, op models.OriginOp, origin string) error
}

// OriginService applies origin changes to the live policy, the database and
// the other instances, in that order. Every dependency is optional: the CLI
// runs without a policy and tests run without a store.
type OriginService struct {
	policy   *cors.Policy
	store    OriginStore
	configs  ConfigStore
	sync     ChangePublisher
	events   queue.EventPublisher
	instance string
	log      *zap.Logger
	tracer   trace.Tracer
}

// OriginServiceOption configures an OriginService.
type OriginServiceOption func(*OriginService)

// WithOriginStore persists changes to store.
func WithOriginStore(store OriginStore) OriginServiceOption {
	return func(s *OriginService) { s.store = store }
}

// WithConfigStore lets the service check credentials without a live policy.
func WithConfigStore(configs ConfigStore) OriginServiceOption {
	return func(s *OriginService) { s.configs = configs }
}

// WithChangePublisher broadcasts changes after they are persisted.
func WithChangePublisher(p ChangePublisher) OriginServiceOption {
	return func(s *OriginService) { s.sync = p }
}

// WithEventPublisher emits an audit event for each change.
func WithEventPublisher(p queue.EventPublisher) OriginServiceOption {
	return func(s *OriginService) { s.events = p }
}

// WithInstanceID tags emitted events with the gateway instance.
func WithInstanceID(id string) OriginServiceOption {
	return func(s *OriginService) { s.instance = id }
}

// NewOriginService creates an origin service. policy may be nil.
func NewOriginService(policy *cors.Policy, log *zap.Logger, opts ...OriginServiceOption) *OriginService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &OriginService{
		policy: policy,
		log:    log,
		tracer: telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddOrigin allows origin everywhere. When persisting fails the in-memory
// change is rolled back and the store error is returned.
func (s *OriginService) AddOrigin(ctx context.Context, origin, actor string) (err error) {
	ctx, span := s.tracer.Start(ctx, "OriginService.AddOrigin",
		trace.WithAttributes(attribute.String("cors.origin", origin)))
	defer func() { endSpan(span, err) }()

	if verr := validation.ValidateOrigin(origin); verr != nil {
		return fmt.Errorf("%w: %v", cors.ErrInvalidInput, verr)
	}
	if err := s.checkWildcard(ctx, origin); err != nil {
		return err
	}

	appliedLocally := false
	if s.policy != nil {
		if err := s.policy.AddOrigin(origin); err != nil {
			return err
		}
		appliedLocally = true
	}

	if s.store != nil {
		added, err := s.store.Add(ctx, origin, actor)
		if err != nil {
			if appliedLocally {
				s.rollback(models.OriginOpAdd, origin)
			}
			return err
		}
		if !added && !appliedLocally {
			return cors.ErrOriginExists
		}
	}

	s.announce(ctx, models.OriginOpAdd, origin, actor)
	return nil
}

// RemoveOrigin disallows origin everywhere, rolling back like AddOrigin.
func (s *OriginService) RemoveOrigin(ctx context.Context, origin, actor string) (err error) {
	ctx, span := s.tracer.Start(ctx, "OriginService.RemoveOrigin",
		trace.WithAttributes(attribute.String("cors.origin", origin)))
	defer func() { endSpan(span, err) }()

	if origin == "" {
		return cors.ErrInvalidOrigin
	}

	removedLocally := false
	if s.policy != nil {
		err := s.policy.RemoveOrigin(origin)
		switch {
		case err == nil:
			removedLocally = true
		case errors.Is(err, cors.ErrOriginNotFound) && s.store != nil:
			// The store may still hold it if this instance missed an update.
		default:
			return err
		}
	}

	if s.store != nil {
		removed, err := s.store.Remove(ctx, origin)
		if err != nil {
			if removedLocally {
				s.rollback(models.OriginOpRemove, origin)
			}
			return err
		}
		if !removed && !removedLocally {
			return cors.ErrOriginNotFound
		}
	}

	s.announce(ctx, models.OriginOpRemove, origin, actor)
	return nil
}

// ResetStats zeroes the local counters and records who did it.
func (s *OriginService) ResetStats(ctx context.Context, actor string) {
	ctx, span := s.tracer.Start(ctx, "OriginService.ResetStats")
	defer span.End()

	if s.policy != nil {
		s.policy.ResetStats()
	}
	s.log.Info("cors_stats_reset", zap.String("actor", logpkg.SanitizeString(actor, logpkg.MaxGeneralStringLength)))
	s.emit(ctx, queue.EventTypeStatsReset, "", actor)
}

// ListOrigins returns the live origins, or the stored ones without a live policy.
func (s *OriginService) ListOrigins(ctx context.Context) ([]string, error) {
	if s.policy != nil && s.policy.Initialized() {
		return s.policy.Origins(), nil
	}
	if s.store == nil {
		return nil, cors.ErrNotInitialized
	}
	return s.store.Origins(ctx)
}

// checkWildcard refuses "*" while credentials are enabled. With a live
// policy the policy itself enforces this.
func (s *OriginService) checkWildcard(ctx context.Context, origin string) error {
	if origin != cors.Wildcard || s.policy != nil || s.configs == nil {
		return nil
	}
	cfg, err := s.configs.Get(ctx)
	if err != nil {
		return err
	}
	if cfg != nil && cfg.AllowCredentials {
		return cors.ErrCredentialsWithWildcard
	}
	return nil
}

func (s *OriginService) rollback(op models.OriginOp, origin string) {
	var err error
	if op == models.OriginOpAdd {
		err = s.policy.RemoveOrigin(origin)
	} else {
		err = s.policy.AddOrigin(origin)
	}
	fields := []zap.Field{
		zap.String("op", string(op)),
		zap.String("origin", logpkg.SanitizeOrigin(origin)),
	}
	if err != nil {
		s.log.Error("origin_change_rollback_failed", append(fields, zap.Error(err))...)
		return
	}
	s.log.Warn("origin_change_rolled_back", fields...)
}

// announce logs the change and notifies peers and subscribers. Failures here
// do not undo the change; the reconciler converges peers from the database.
func (s *OriginService) announce(ctx context.Context, op models.OriginOp, origin, actor string) {
	s.log.Info("origin_change_applied",
		zap.String("op", string(op)),
		zap.String("origin", logpkg.SanitizeOrigin(origin)),
		zap.String("actor", logpkg.SanitizeString(actor, logpkg.MaxGeneralStringLength)),
	)

	if s.sync != nil {
		if err := s.sync.PublishChange(ctx, op, origin); err != nil {
			s.log.Warn("origin_change_broadcast_failed", zap.Error(err))
		}
	}

	eventType := queue.EventTypeOriginAdded
	if op == models.OriginOpRemove {
		eventType = queue.EventTypeOriginRemoved
	}
	s.emit(ctx, eventType, origin, actor)
}

func (s *OriginService) emit(ctx context.Context, eventType queue.EventType, origin, actor string) {
	if s.events == nil {
		return
	}
	event := queue.NewEvent(eventType, origin, actor)
	event.Instance = s.instance
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("policy_event_publish_failed",
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
