package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/corsgate/internal/config"
	"github.com/benvon/corsgate/internal/cors"
	"github.com/benvon/corsgate/internal/database"
	"github.com/benvon/corsgate/internal/handlers"
	"github.com/benvon/corsgate/internal/logger"
	"github.com/benvon/corsgate/internal/metrics"
	"github.com/benvon/corsgate/internal/middleware"
	"github.com/benvon/corsgate/internal/originsync"
	"github.com/benvon/corsgate/internal/proxy"
	"github.com/benvon/corsgate/internal/queue"
	"github.com/benvon/corsgate/internal/service"
	"github.com/benvon/corsgate/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()
	zapLogger = zapLogger.With(zap.String("instance_id", cfg.InstanceID))

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.Bool("database_enabled", cfg.DatabaseURL != ""),
		zap.Bool("redis_enabled", cfg.RedisURL != ""),
		zap.Bool("rabbitmq_enabled", cfg.RabbitMQURL != ""),
		zap.Bool("admin_enabled", cfg.AdminEnabled()),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	tracingEnabled := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else if tp, err := telemetry.InitTracer(bgCtx, telemetry.ServiceName, cfg.InstanceID, cfg.OTELEndpoint); err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			tracingEnabled = true
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	policy := cors.NewPolicy(logger.Named(zapLogger, "cors", ""))
	healthChecker := handlers.NewHealthChecker(policy)
	serviceOpts := []service.OriginServiceOption{service.WithInstanceID(cfg.InstanceID)}

	// Initial policy: database, then POLICY_FILE, then CORS_* variables.
	fallback, err := cfg.PolicyOptions()
	if err != nil {
		zapLogger.Fatal("invalid_cors_policy_configuration", zap.Error(err))
	}
	policyOpts := fallback

	var originRepo *database.OriginRepository
	if cfg.DatabaseURL != "" {
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_database")

		if err := db.EnsureSchema(bgCtx); err != nil {
			zapLogger.Fatal("failed_to_ensure_schema", zap.Error(err))
		}

		configRepo := database.NewCorsConfigRepository(db)
		originRepo = database.NewOriginRepository(db)
		policyOpts, err = service.Bootstrap(bgCtx, configRepo, originRepo, fallback, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_load_cors_policy", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, service.WithOriginStore(originRepo), service.WithConfigStore(configRepo))
		healthChecker.AddCheck("database", db)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedis(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
		serviceOpts = append(serviceOpts, service.WithChangePublisher(originsync.NewPublisher(redisClient, cfg.InstanceID)))
		healthChecker.AddCheck("redis", handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}

	var events queue.EventPublisher = queue.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		publisher := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		if publisher != nil {
			events = publisher
			healthChecker.AddCheck("rabbitmq", handlers.PingFunc(publisher.HealthCheck))
		}
	}
	defer func() {
		if err := events.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	serviceOpts = append(serviceOpts, service.WithEventPublisher(events))

	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order, first registered outermost.
	if tracingEnabled {
		r.Use(telemetry.Middleware())
	}
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))

	// Init registers the CORS pipeline as the innermost middleware.
	if err := policy.Init(policyOpts, middleware.MuxRegistrar{Router: r}); err != nil {
		zapLogger.Fatal("failed_to_initialize_cors_policy", zap.Error(err))
	}
	defer policy.Shutdown()
	cfgSnapshot, _ := policy.Config()
	zapLogger.Info("cors_policy_initialized",
		zap.Strings("origins", policy.Origins()),
		zap.String("allowed_methods", cfgSnapshot.AllowedMethods),
		zap.Bool("allow_credentials", cfgSnapshot.AllowCredentials),
		zap.Int("max_age", cfgSnapshot.MaxAge),
	)

	originService := service.NewOriginService(policy, logger.Named(zapLogger, "origins", ""), serviceOpts...)

	registry, err := metrics.NewRegistry(policy)
	if err != nil {
		zapLogger.Fatal("failed_to_create_metrics_registry", zap.Error(err))
	}

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.Handle("/metrics", metrics.Handler(registry)).Methods("GET")

	if cfg.AdminEnabled() {
		store, err := middleware.NewRateLimitStore(redisClient)
		if err != nil {
			zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
		}
		rateLimitMW, err := middleware.RateLimit(store, cfg.AdminRateLimit, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
		}

		adminRouter := r.PathPrefix("/admin/v1").Subrouter()
		adminRouter.Use(middleware.AdminSecurityHeaders)
		adminRouter.Use(rateLimitMW)
		adminRouter.Use(middleware.AdminAuth([]byte(cfg.AdminJWTSecret), zapLogger))
		adminRouter.Use(middleware.RequireJSON(zapLogger))
		adminRouter.Use(middleware.Timeout(middleware.DefaultAdminTimeout))
		handlers.NewAdminHandler(policy, originService, zapLogger).RegisterRoutes(adminRouter)
		zapLogger.Info("admin_api_enabled", zap.String("rate", cfg.AdminRateLimit))
	} else {
		zapLogger.Warn("admin_api_disabled_no_secret")
	}

	upstream, err := proxy.New(cfg.UpstreamURL, logger.Named(zapLogger, "proxy", ""))
	if err != nil {
		zapLogger.Fatal("invalid_upstream", zap.Error(err))
	}
	// Catch-all so the CORS middleware runs for every proxied path and method.
	r.PathPrefix("/").Handler(upstream)

	if originRepo != nil {
		reconciler := service.NewReconciler(policy, originRepo, logger.Named(zapLogger, "reconciler", ""), cfg.OriginResyncInterval)
		go reconciler.Start(bgCtx)
	}
	if redisClient != nil {
		subscriber := originsync.NewSubscriber(redisClient, cfg.InstanceID, policy, logger.Named(zapLogger, "originsync", ""))
		go func() {
			if err := subscriber.Run(bgCtx); err != nil {
				zapLogger.Error("origin_sync_stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort), zap.String("upstream", cfg.UpstreamURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRabbitMQ retries with exponential backoff to ride out broker startup.
// Audit events are optional, so it gives up with a warning instead of exiting.
func connectRabbitMQ(url string, zapLogger *zap.Logger) *queue.RabbitMQPublisher {
	const maxRetries = 5
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		publisher, err := queue.NewRabbitMQPublisher(url)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return publisher
		}
		lastErr = err

		delay := min(initialDelay*time.Duration(1<<uint(attempt)), 30*time.Second)
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	zapLogger.Warn("rabbitmq_unavailable_audit_events_disabled",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}
