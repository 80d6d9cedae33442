package audio

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kbukum/diarizer/process"
)

// FFmpegConfig configures the ffmpeg normalizer.
type FFmpegConfig struct {
	Binary  string        `yaml:"binary" mapstructure:"binary"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills zero fields.
func (c *FFmpegConfig) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = "ffmpeg"
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
}

// FFmpeg normalizes any container ffmpeg can read by piping it through
// the binary.
type FFmpeg struct {
	runner *process.Runner
}

// NewFFmpeg resolves the ffmpeg binary. It fails when the binary is not
// installed, so callers can leave it out of their chain.
func NewFFmpeg(cfg FFmpegConfig) (*FFmpeg, error) {
	cfg.ApplyDefaults()
	runner, err := process.NewRunner(process.Config{
		Binary:      cfg.Binary,
		Timeout:     cfg.Timeout,
		GracePeriod: 2 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &FFmpeg{runner: runner}, nil
}

func (f *FFmpeg) Name() string { return "ffmpeg" }

func (f *FFmpeg) Normalize(ctx context.Context, in []byte) ([]byte, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("audio: empty input")
	}
	res, err := f.runner.Run(ctx, ffmpegArgs(), process.WithStdin(in))
	if err != nil {
		return nil, fmt.Errorf("audio: ffmpeg: %w", res.WithStderr(err))
	}
	if !IsWAV(res.Stdout) {
		return nil, fmt.Errorf("audio: ffmpeg produced no WAV output")
	}
	return res.Stdout, nil
}

func ffmpegArgs() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ac", strconv.Itoa(TargetChannels),
		"-ar", strconv.Itoa(TargetSampleRate),
		"-f", "wav", "pipe:1",
	}
}
