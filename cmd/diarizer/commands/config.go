package commands

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/diarizer/audio"
	"github.com/kbukum/diarizer/config"
	"github.com/kbukum/diarizer/diarization"
	"github.com/kbukum/diarizer/diarization/pyannote"
	"github.com/kbukum/diarizer/observability"
	"github.com/kbukum/diarizer/redis"
	"github.com/kbukum/diarizer/resilience"
	"github.com/kbukum/diarizer/server"
	"github.com/kbukum/diarizer/util"
	"github.com/kbukum/diarizer/version"
)

// serviceName selects cmd/diarizer/config.yml and .env.diarizer.
const serviceName = "diarizer"

// envAliases maps the conventional variables onto config keys.
var envAliases = map[string]string{
	"HF_TOKEN": "pipeline.token",
	"PORT":     "server.port",
}

// Config is the diarizer service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Pipeline      PipelineConfig       `yaml:"pipeline" mapstructure:"pipeline"`
	Audio         AudioConfig          `yaml:"audio" mapstructure:"audio"`
	Cache         CacheConfig          `yaml:"cache" mapstructure:"cache"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// PipelineConfig selects and tunes the diarization backend.
type PipelineConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	Model   string `yaml:"model" mapstructure:"model"`
	// Token is the Hugging Face credential, usually from HF_TOKEN.
	Token       string         `yaml:"token" mapstructure:"token"`
	Preload     bool           `yaml:"preload" mapstructure:"preload"`
	LoadTimeout time.Duration  `yaml:"load_timeout" mapstructure:"load_timeout"`
	Options     map[string]any `yaml:"options" mapstructure:"options"`

	Breaker  BreakerConfig  `yaml:"breaker" mapstructure:"breaker"`
	Bulkhead BulkheadConfig `yaml:"bulkhead" mapstructure:"bulkhead"`
}

// BreakerConfig enables a circuit breaker around model calls.
type BreakerConfig struct {
	Enabled                         bool `yaml:"enabled" mapstructure:"enabled"`
	resilience.CircuitBreakerConfig `yaml:",inline" mapstructure:",squash"`
}

// BulkheadConfig caps concurrent model calls.
type BulkheadConfig struct {
	Enabled                   bool `yaml:"enabled" mapstructure:"enabled"`
	resilience.BulkheadConfig `yaml:",inline" mapstructure:",squash"`
}

// ApplyDefaults fills zero fields.
func (c *PipelineConfig) ApplyDefaults() {
	c.Backend = util.Coalesce(c.Backend, pyannote.BackendName)
	c.Model = util.Coalesce(c.Model, pyannote.DefaultModel)
	c.Token = strings.TrimSpace(c.Token)
	if c.Breaker.Enabled {
		if c.Breaker.MaxFailures <= 0 {
			c.Breaker.MaxFailures = 5
		}
		if c.Breaker.Timeout <= 0 {
			c.Breaker.Timeout = 30 * time.Second
		}
		if c.Breaker.HalfOpenMaxCalls <= 0 {
			c.Breaker.HalfOpenMaxCalls = 1
		}
	}
	if c.Bulkhead.Enabled && c.Bulkhead.MaxConcurrent <= 0 {
		c.Bulkhead.MaxConcurrent = 1
	}
}

// Validate checks the backend is registered.
func (c *PipelineConfig) Validate() error {
	if backends := diarization.Backends(); !slices.Contains(backends, c.Backend) {
		return fmt.Errorf("pipeline.backend %q is not one of %v", c.Backend, backends)
	}
	if c.LoadTimeout < 0 {
		return fmt.Errorf("pipeline.load_timeout must be non-negative")
	}
	return nil
}

// AudioConfig controls normalization and scratch files.
type AudioConfig struct {
	// SkipNormalize hands uploads to the model unchanged.
	SkipNormalize bool               `yaml:"skip_normalize" mapstructure:"skip_normalize"`
	FFmpeg        audio.FFmpegConfig `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	ScratchDir    string             `yaml:"scratch_dir" mapstructure:"scratch_dir"`
}

// Validate checks that the scratch directory exists when set.
func (c *AudioConfig) Validate() error {
	if c.ScratchDir == "" {
		return nil
	}
	info, err := os.Stat(c.ScratchDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("audio.scratch_dir %q is not a directory", c.ScratchDir)
	}
	return nil
}

// CacheConfig controls the redis result cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Prefix  string        `yaml:"prefix" mapstructure:"prefix"`
}

// ApplyDefaults fills zero fields.
func (c *CacheConfig) ApplyDefaults() {
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	c.Prefix = util.Coalesce(c.Prefix, "diarizer:result:")
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.Name = util.Coalesce(c.Name, serviceName)
	c.Version = util.Coalesce(c.Version, version.GetShortVersion())
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	c.Audio.FFmpeg.ApplyDefaults()
	c.Cache.ApplyDefaults()
	if c.Cache.Enabled {
		c.Redis.Enabled = true
	}
	c.Redis.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if err := c.Audio.Validate(); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}

// loadConfig reads config.yml, .env files and the environment.
func loadConfig(configFile, envFile string) (*Config, error) {
	cfg := &Config{}
	opts := []config.LoaderOption{config.WithEnvAliases(envAliases)}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
