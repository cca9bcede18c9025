package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/benvon/corsgate/internal/cors"
	"github.com/benvon/corsgate/internal/validation"
	"github.com/ulule/limiter/v3"
)

// Config holds application configuration
type Config struct {
	ServerPort           string
	UpstreamURL          string
	DatabaseURL          string
	RedisURL             string
	RabbitMQURL          string
	AdminJWTSecret       string
	AdminRateLimit       string
	PolicyFile           string
	InstanceID           string
	OriginResyncInterval time.Duration
	ServerDebugMode      bool
	OTELEnabled          bool
	OTELEndpoint         string

	CORSAllowedOrigins   string
	CORSAllowedMethods   string
	CORSAllowedHeaders   string
	CORSExposedHeaders   string
	CORSAllowCredentials bool
	CORSMaxAge           int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		UpstreamURL:          getEnv("UPSTREAM_URL", ""),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		RabbitMQURL:          getEnv("RABBITMQ_URL", ""),
		AdminJWTSecret:       getEnv("ADMIN_JWT_SECRET", ""),
		AdminRateLimit:       getEnv("ADMIN_RATE_LIMIT", "10-S"),
		PolicyFile:           getEnv("POLICY_FILE", ""),
		InstanceID:           getEnv("INSTANCE_ID", defaultInstanceID()),
		OriginResyncInterval: getEnvDuration("ORIGIN_RESYNC_INTERVAL", time.Minute),
		ServerDebugMode:      getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:          getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		CORSAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", ""),
		CORSAllowedMethods:   getEnv("CORS_ALLOWED_METHODS", ""),
		CORSAllowedHeaders:   getEnv("CORS_ALLOWED_HEADERS", ""),
		CORSExposedHeaders:   getEnv("CORS_EXPOSED_HEADERS", ""),
		CORSAllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAge:           getEnvInt("CORS_MAX_AGE", 0),
	}

	if _, err := limiter.NewRateFromFormatted(cfg.AdminRateLimit); err != nil {
		return nil, fmt.Errorf("invalid ADMIN_RATE_LIMIT %q: %w", cfg.AdminRateLimit, err)
	}

	return cfg, nil
}

// ValidateServer checks the settings the gateway server cannot start without.
func (c *Config) ValidateServer() error {
	if c.UpstreamURL == "" {
		return fmt.Errorf("UPSTREAM_URL is required")
	}
	return nil
}

// RequireDatabase returns an error when DATABASE_URL is unset.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// AdminEnabled reports whether the admin API should be mounted.
func (c *Config) AdminEnabled() bool {
	return c.AdminJWTSecret != ""
}

// PolicyOptions returns the initial policy from POLICY_FILE, or from the
// CORS_* variables. It returns nil when neither is set, which makes the
// engine apply its defaults.
func (c *Config) PolicyOptions() (*cors.Options, error) {
	if c.PolicyFile != "" {
		return LoadPolicyFile(c.PolicyFile)
	}

	opts := &cors.Options{
		AllowedOrigins:   cors.ParseOriginList(c.CORSAllowedOrigins),
		AllowedMethods:   c.CORSAllowedMethods,
		AllowedHeaders:   c.CORSAllowedHeaders,
		ExposedHeaders:   c.CORSExposedHeaders,
		AllowCredentials: c.CORSAllowCredentials,
		MaxAge:           c.CORSMaxAge,
	}
	if len(opts.AllowedOrigins) == 0 && opts.AllowedMethods == "" && opts.AllowedHeaders == "" &&
		opts.ExposedHeaders == "" && !opts.AllowCredentials && opts.MaxAge == 0 {
		return nil, nil
	}
	if err := validation.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid CORS_* settings: %w", err)
	}
	return opts, nil
}

func defaultInstanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "corsgate"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
