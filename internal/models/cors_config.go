package models

import (
	"time"

	"github.com/benvon/corsgate/internal/cors"
)

// CorsConfig is the persisted policy configuration row. Origins live in
// their own table (see AllowedOrigin).
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedMethods   string    `json:"allowed_methods"`
	AllowedHeaders   string    `json:"allowed_headers"`
	ExposedHeaders   string    `json:"exposed_headers"`
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Options combines the row with origins into engine options.
func (c *CorsConfig) Options(origins []string) *cors.Options {
	return &cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   c.AllowedMethods,
		AllowedHeaders:   c.AllowedHeaders,
		ExposedHeaders:   c.ExposedHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAge,
	}
}

// CorsConfigFromOptions builds a row from engine options, ignoring origins.
func CorsConfigFromOptions(opts *cors.Options) *CorsConfig {
	if opts == nil {
		opts = &cors.Options{}
	}
	return &CorsConfig{
		AllowedMethods:   opts.AllowedMethods,
		AllowedHeaders:   opts.AllowedHeaders,
		ExposedHeaders:   opts.ExposedHeaders,
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           opts.MaxAge,
	}
}

// AllowedOrigin is a persisted origin-set entry.
type AllowedOrigin struct {
	Origin    string    `json:"origin"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
