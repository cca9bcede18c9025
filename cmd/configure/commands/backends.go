package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/benvon/corsgate/internal/config"
	"github.com/benvon/corsgate/internal/database"
	"github.com/benvon/corsgate/internal/logger"
	"github.com/benvon/corsgate/internal/originsync"
	"github.com/benvon/corsgate/internal/queue"
	"github.com/benvon/corsgate/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cliActor is recorded as created_by for origins added from the command line.
const cliActor = "configure-cli"

// backends holds the connections a command needs. Redis and RabbitMQ are
// optional; without them running gateways pick up changes on their next resync.
type backends struct {
	cfg    *config.Config
	db     *database.DB
	redis  *redis.Client
	events queue.EventPublisher
	log    *zap.Logger
}

func openBackends(broadcast bool) (*backends, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	log, err := logger.NewDevelopmentLogger(cfg.ServerDebugMode)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	b := &backends{cfg: cfg, db: db, events: queue.NopPublisher{}, log: log}
	if !broadcast {
		return b, nil
	}

	if cfg.RedisURL != "" {
		client, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: redis unavailable, change will not be broadcast: %v\n", err)
		} else {
			b.redis = client
		}
	}
	if cfg.RabbitMQURL != "" {
		publisher, err := queue.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: rabbitmq unavailable, no audit event will be sent: %v\n", err)
		} else {
			b.events = publisher
		}
	}
	return b, nil
}

// originService builds a service with no live policy: changes go to the
// database and out to running gateways.
func (b *backends) originService() *service.OriginService {
	opts := []service.OriginServiceOption{
		service.WithOriginStore(database.NewOriginRepository(b.db)),
		service.WithConfigStore(database.NewCorsConfigRepository(b.db)),
		service.WithEventPublisher(b.events),
		service.WithInstanceID(cliActor),
	}
	if b.redis != nil {
		opts = append(opts, service.WithChangePublisher(originsync.NewPublisher(b.redis, cliActor)))
	}
	return service.NewOriginService(nil, b.log, opts...)
}

func (b *backends) Close() {
	if err := b.events.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close rabbitmq: %v\n", err)
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close redis: %v\n", err)
		}
	}
	if err := b.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
	_ = logger.Sync(b.log)
}
