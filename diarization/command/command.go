// Package command is a diarization backend that runs a local program, for
// hosts where the model lives in a Python environment next to the service.
//
// Loading runs "<binary> <load_args>" once, which should download and
// verify the model, and fails when it exits non-zero. Each diarization
// runs "<binary> <diarize_args> <audio path>" and reads a JSON
// {"duration", "turns"} document from stdout. The credential and the
// speaker hints are passed in the environment. "{model}" in any argument
// is replaced by the model name. A diarize run that exits 65 reports audio
// the model could not use. Stderr is carried into the error either way.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/diarizer/diarization"
	"github.com/kbukum/diarizer/process"
	"github.com/kbukum/diarizer/provider"
)

// BackendName is the registered backend name.
const BackendName = "command"

// ExitInputRejected is the exit status (EX_DATAERR) a program uses to say
// the audio itself is unusable rather than that the model failed.
const ExitInputRejected = 65

// Environment variables set for the program.
const (
	EnvToken       = "HF_TOKEN"
	EnvModel       = "DIARIZER_MODEL"
	EnvNumSpeakers = "DIARIZER_NUM_SPEAKERS"
	EnvMinSpeakers = "DIARIZER_MIN_SPEAKERS"
	EnvMaxSpeakers = "DIARIZER_MAX_SPEAKERS"
)

// Config holds the backend options.
type Config struct {
	Binary      string        `mapstructure:"binary"`
	LoadArgs    []string      `mapstructure:"load_args"`
	DiarizeArgs []string      `mapstructure:"diarize_args"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
}

// Loader runs the configured program.
type Loader struct {
	cfg    Config
	runner *process.Runner
}

var _ diarization.Loader = (*Loader)(nil)

// NewLoader resolves the binary.
func NewLoader(cfg Config) (*Loader, error) {
	cfg.ApplyDefaults()
	runner, err := process.NewRunner(process.Config{
		Binary:      cfg.Binary,
		Timeout:     cfg.Timeout,
		GracePeriod: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("command backend: %w", err)
	}
	return &Loader{cfg: cfg, runner: runner}, nil
}

// Factory builds a Loader from a backend options block.
func Factory() provider.Factory[diarization.Loader] {
	return func(options map[string]any) (diarization.Loader, error) {
		var cfg Config
		if err := provider.Decode(options, &cfg); err != nil {
			return nil, fmt.Errorf("command backend: %w", err)
		}
		return NewLoader(cfg)
	}
}

func (l *Loader) Name() string { return BackendName }

// IsAvailable reports whether the binary was found.
func (l *Loader) IsAvailable(context.Context) bool {
	return l.runner != nil
}

// Load runs the load command. With no load_args it only records the
// credential.
func (l *Loader) Load(ctx context.Context, model, credential string) (diarization.Pipeline, error) {
	env := []string{EnvToken + "=" + credential, EnvModel + "=" + model}
	if len(l.cfg.LoadArgs) > 0 {
		res, err := l.runner.Run(ctx, expand(l.cfg.LoadArgs, model), process.WithEnv(env...))
		if err != nil {
			return nil, fmt.Errorf("command backend: load: %w", res.WithStderr(err))
		}
	}
	return &Pipeline{runner: l.runner, args: expand(l.cfg.DiarizeArgs, model), env: env}, nil
}

// Pipeline runs one process per diarization.
type Pipeline struct {
	runner *process.Runner
	args   []string
	env    []string
}

func (p *Pipeline) Diarize(ctx context.Context, req diarization.Request) (*diarization.Result, error) {
	env := append([]string(nil), p.env...)
	env = appendHint(env, EnvNumSpeakers, req.NumSpeakers)
	env = appendHint(env, EnvMinSpeakers, req.MinSpeakers)
	env = appendHint(env, EnvMaxSpeakers, req.MaxSpeakers)

	args := append(append([]string(nil), p.args...), req.AudioPath)
	res, err := p.runner.Run(ctx, args, process.WithEnv(env...))
	if err != nil {
		err = fmt.Errorf("command backend: diarize: %w", res.WithStderr(err))
		if res != nil && res.ExitCode == ExitInputRejected {
			return nil, diarization.InputRejected(err)
		}
		return nil, err
	}

	var result diarization.Result
	if err := json.Unmarshal(res.Stdout, &result); err != nil {
		return nil, fmt.Errorf("command backend: parse output: %w", err)
	}
	if result.Turns == nil {
		result.Turns = []diarization.Turn{}
	}
	return &result, nil
}

func expand(args []string, model string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.ReplaceAll(a, "{model}", model)
	}
	return out
}

func appendHint(env []string, name string, v *int) []string {
	if v == nil {
		return env
	}
	return append(env, name+"="+strconv.Itoa(*v))
}
