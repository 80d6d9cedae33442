package server

import (
	"fmt"

	"github.com/kbukum/diarizer/server/middleware"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string                     `yaml:"host" mapstructure:"host"`
	Port         int                        `yaml:"port" mapstructure:"port"`
	ReadTimeout  int                        `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int                        `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout  int                        `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	MaxBodySize  string                     `yaml:"max_body_size" mapstructure:"max_body_size"` // e.g. "200MB"
	CORS         middleware.CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit    middleware.RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Auth         middleware.AuthConfig      `yaml:"auth" mapstructure:"auth"`
}

// ApplyDefaults sets defaults for unset fields. CORS defaults to fully
// open. The write timeout covers a whole diarization, which can take
// minutes on long recordings.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 120
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 900
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "200MB"
	}
	open := middleware.OpenCORS()
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = open.AllowedOrigins
		c.CORS.AllowCredentials = open.AllowCredentials
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = open.AllowedMethods
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = open.AllowedHeaders
	}
	if c.RateLimit.Enabled && c.RateLimit.Rate == 0 {
		c.RateLimit.Rate = 5
	}
	if len(c.Auth.SkipPaths) == 0 {
		c.Auth.SkipPaths = []string{"/health", "/alive", "/ready", "/info", "/test"}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Rate < 0 || c.RateLimit.Burst < 0) {
		return fmt.Errorf("server.rate_limit rate and burst must be non-negative")
	}
	if c.Auth.Enabled() && len(c.Auth.Secret) < 16 {
		return fmt.Errorf("server.auth.secret must be at least 16 characters")
	}
	return nil
}
