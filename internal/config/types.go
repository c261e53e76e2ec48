package config

import (
	"time"

	"github.com/veilhq/veil/internal/audit"
	"github.com/veilhq/veil/internal/rules"
)

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig      `yaml:"server" mapstructure:"server"`
	Rules     rules.StoreConfig `yaml:"rules" mapstructure:"rules"`
	Audit     audit.SinkConfig  `yaml:"audit" mapstructure:"audit"`
	CORS      CORSConfig        `yaml:"cors" mapstructure:"cors"`
	RateLimit RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Events    EventsConfig      `yaml:"events" mapstructure:"events"`
	Logging   LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// CORSConfig contains cross-origin response configuration. A single origin
// is reflected on every response; empty means allow any origin.
type CORSConfig struct {
	AllowedOrigin string `yaml:"allowed_origin" mapstructure:"allowed_origin"`
}

// RateLimitConfig contains per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min"`
}

// EventsConfig contains the operational event stream configuration
type EventsConfig struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`
	Path           string   `yaml:"path" mapstructure:"path"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Rules: rules.StoreConfig{
			RedisURL:       "",
			Key:            "veil:rules",
			MaxConnections: 10,
			MinIdleConns:   2,
			CacheTTL:       rules.DefaultCacheTTL,
			FallbackSalt:   "demo-salt",
		},
		Audit: audit.SinkConfig{
			Enabled:         false,
			DatabaseURL:     "",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			Retention:       audit.DefaultRetention,
			PurgeInterval:   10 * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigin: "*",
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 120,
		},
		Events: EventsConfig{
			Enabled:        false,
			Path:           "/ws",
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
