package cors

import "strings"

const (
	// DefaultMethods is used when no methods are configured.
	DefaultMethods = "GET, POST, PUT, DELETE, PATCH, OPTIONS"
	// DefaultHeaders is used when no allowed headers are configured.
	DefaultHeaders = "Content-Type, Authorization, X-Requested-With"
	// DefaultMaxAge is the preflight cache lifetime in seconds.
	DefaultMaxAge = 3600
)

// Options is the caller-supplied policy. Zero values fall back to defaults;
// a nil *Options behaves like an empty one.
type Options struct {
	AllowedOrigins   []string `yaml:"allowed_origins" json:"allowed_origins" validate:"omitempty,dive,cors_origin"`
	AllowedMethods   string   `yaml:"allowed_methods" json:"allowed_methods" validate:"max=1024,header_list"`
	AllowedHeaders   string   `yaml:"allowed_headers" json:"allowed_headers" validate:"max=4096,header_list"`
	ExposedHeaders   string   `yaml:"exposed_headers" json:"exposed_headers" validate:"max=4096,header_list"`
	AllowCredentials bool     `yaml:"allow_credentials" json:"allow_credentials"`
	MaxAge           int      `yaml:"max_age" json:"max_age"`
}

// PolicyConfig is the resolved, immutable part of a policy.
type PolicyConfig struct {
	AllowedMethods   string `json:"allowed_methods"`
	AllowedHeaders   string `json:"allowed_headers"`
	ExposedHeaders   string `json:"exposed_headers,omitempty"`
	AllowCredentials bool   `json:"allow_credentials"`
	MaxAge           int    `json:"max_age"`
}

// NewPolicyConfig resolves opts against the defaults.
func NewPolicyConfig(opts *Options) PolicyConfig {
	if opts == nil {
		opts = &Options{}
	}
	cfg := PolicyConfig{
		AllowedMethods:   opts.AllowedMethods,
		AllowedHeaders:   opts.AllowedHeaders,
		ExposedHeaders:   opts.ExposedHeaders,
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           opts.MaxAge,
	}
	if cfg.AllowedMethods == "" {
		cfg.AllowedMethods = DefaultMethods
	}
	if cfg.AllowedHeaders == "" {
		cfg.AllowedHeaders = DefaultHeaders
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	return cfg
}

// initialOrigins returns the origins to seed the set with; "*" when none are given.
func (o *Options) initialOrigins() []string {
	if o == nil || len(o.AllowedOrigins) == 0 {
		return []string{Wildcard}
	}
	return o.AllowedOrigins
}

// ParseOriginList splits a comma-separated origin list, trimming blanks and duplicates.
func ParseOriginList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var out []string
	seen := make(map[string]bool)
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
