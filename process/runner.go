package process

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Config holds per-tool defaults, loaded from the service config.
type Config struct {
	// Binary is the tool to run, resolved via PATH when not absolute.
	Binary string `yaml:"binary" mapstructure:"binary"`
	// Timeout bounds each run. Zero means no timeout.
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

// Runner runs one configured tool.
type Runner struct {
	config Config
	path   string
}

// NewRunner resolves cfg.Binary and returns a Runner for it.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}
	path, err := exec.LookPath(cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("process: %s not found: %w", cfg.Binary, err)
	}
	return &Runner{config: cfg, path: path}, nil
}

// Path is the resolved executable.
func (r *Runner) Path() string { return r.path }

// Run executes the tool with args, applying the configured timeout and
// grace period.
func (r *Runner) Run(ctx context.Context, args []string, opts ...RunOption) (*Result, error) {
	cmd := Command{Binary: r.path, Args: args, GracePeriod: r.config.GracePeriod}
	for _, opt := range opts {
		opt(&cmd)
	}
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	return Run(ctx, cmd)
}

// RunOption adjusts a single run.
type RunOption func(*Command)

// WithStdin feeds data to the process.
func WithStdin(data []byte) RunOption {
	return func(c *Command) { c.Stdin = bytes.NewReader(data) }
}

// WithEnv appends KEY=value entries.
func WithEnv(env ...string) RunOption {
	return func(c *Command) { c.Env = append(c.Env, env...) }
}
