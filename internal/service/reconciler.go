package service

import (
	"context"
	"errors"
	"time"

	"github.com/benvon/corsgate/internal/cors"
	logpkg "github.com/benvon/corsgate/internal/logger"
	"go.uber.org/zap"
)

// Reconciler periodically makes the live origin set match the database. It
// repairs drift left by missed pub/sub messages.
type Reconciler struct {
	policy   *cors.Policy
	store    OriginStore
	log      *zap.Logger
	interval time.Duration
}

// NewReconciler creates a reconciler. An interval <= 0 disables Start.
func NewReconciler(policy *cors.Policy, store OriginStore, log *zap.Logger, interval time.Duration) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{policy: policy, store: store, log: log, interval: interval}
}

// Start runs the reconcile loop until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := r.Sync(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn("origin_reconcile_failed", zap.Error(err))
			}
		}
	}
}

// Sync applies the difference between the stored and live origin sets. It
// returns how many origins were added and removed.
func (r *Reconciler) Sync(ctx context.Context) (added, removed int, err error) {
	if !r.policy.Initialized() {
		return 0, 0, nil
	}
	stored, err := r.store.Origins(ctx)
	if err != nil {
		return 0, 0, err
	}

	want := make(map[string]bool, len(stored))
	for _, o := range stored {
		want[o] = true
	}
	have := make(map[string]bool)
	for _, o := range r.policy.Origins() {
		have[o] = true
	}

	for _, o := range stored {
		if have[o] {
			continue
		}
		switch err := r.policy.AddOrigin(o); {
		case err == nil:
			added++
		case errors.Is(err, cors.ErrOriginExists):
		default:
			r.log.Warn("origin_reconcile_add_failed",
				zap.String("origin", logpkg.SanitizeOrigin(o)),
				zap.Error(err),
			)
		}
	}
	for o := range have {
		if want[o] {
			continue
		}
		if err := r.policy.RemoveOrigin(o); err == nil {
			removed++
		}
	}

	if added > 0 || removed > 0 {
		r.log.Info("origins_reconciled",
			zap.Int("added", added),
			zap.Int("removed", removed),
		)
	}
	return added, removed, nil
}
