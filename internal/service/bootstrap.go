package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/benvon/corsgate/internal/cors"
	"github.com/benvon/corsgate/internal/models"
	"go.uber.org/zap"
)

// SeedActor is recorded as created_by for origins written at first start.
const SeedActor = "bootstrap"

// Bootstrap resolves the startup policy. A stored configuration wins over
// fallback (POLICY_FILE or CORS_* settings). Otherwise fallback is written to
// the database so every instance starts from the same policy. An empty stored
// origin set is re-seeded from fallback.
func Bootstrap(ctx context.Context, configs ConfigStore, origins OriginStore, fallback *cors.Options, log *zap.Logger) (*cors.Options, error) {
	if log == nil {
		log = zap.NewNop()
	}

	row, err := configs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored policy: %w", err)
	}
	if row == nil {
		row = models.CorsConfigFromOptions(fallback)
		if err := configs.Set(ctx, row); err != nil {
			return nil, fmt.Errorf("seed policy config: %w", err)
		}
		log.Info("cors_config_seeded")
	}

	stored, err := origins.Origins(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored origins: %w", err)
	}
	if len(stored) == 0 {
		var seed []string
		if fallback != nil {
			seed = fallback.AllowedOrigins
		}
		if len(seed) == 0 {
			seed = []string{cors.Wildcard}
		}
		if row.AllowCredentials && slices.Contains(seed, cors.Wildcard) {
			return nil, &cors.InitError{Kind: cors.KindConfiguration, Err: cors.ErrCredentialsWithWildcard}
		}
		if err := origins.ReplaceAll(ctx, seed, SeedActor); err != nil {
			return nil, fmt.Errorf("seed origins: %w", err)
		}
		log.Info("cors_origins_seeded", zap.Strings("origins", seed))
		stored = seed
	}

	return row.Options(stored), nil
}
