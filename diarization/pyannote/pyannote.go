// Package pyannote is a diarization backend that drives a pyannote model
// host over HTTP. Loading asks the host to build the named pipeline with
// the caller's Hugging Face token; diarization uploads the audio file.
package pyannote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kbukum/diarizer/diarization"
	"github.com/kbukum/diarizer/httpclient"
	"github.com/kbukum/diarizer/provider"
)

const (
	// BackendName is the registered backend name.
	BackendName = "pyannote"
	// DefaultModel is the pipeline the host builds when none is configured.
	DefaultModel = "pyannote/speaker-diarization-community-1"

	defaultBaseURL = "http://localhost:8388"
	defaultTimeout = 10 * time.Minute
)

// Config holds the backend options.
type Config struct {
	BaseURL string            `mapstructure:"base_url"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Headers map[string]string `mapstructure:"headers"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks the base URL.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("pyannote: invalid base_url %q", c.BaseURL)
	}
	return nil
}

// Loader asks the model host for a pipeline.
type Loader struct {
	cfg    Config
	client *httpclient.Client
}

var _ diarization.Loader = (*Loader)(nil)

// NewLoader creates a Loader.
func NewLoader(cfg Config) (*Loader, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Headers: cfg.Headers,
	})
	if err != nil {
		return nil, err
	}
	return &Loader{cfg: cfg, client: client}, nil
}

// Factory builds a Loader from a backend options block.
func Factory() provider.Factory[diarization.Loader] {
	return func(options map[string]any) (diarization.Loader, error) {
		var cfg Config
		if err := provider.Decode(options, &cfg); err != nil {
			return nil, fmt.Errorf("pyannote: %w", err)
		}
		return NewLoader(cfg)
	}
}

func (l *Loader) Name() string { return BackendName }

// IsAvailable reports whether the host answers its health check.
func (l *Loader) IsAvailable(ctx context.Context) bool {
	_, err := l.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil
}

type loadRequest struct {
	Model string `json:"model"`
}

type loadResponse struct {
	PipelineID string `json:"pipeline_id"`
}

// Load builds model on the host. The call returns once the host has the
// weights in memory, which can take minutes on a cold start.
func (l *Loader) Load(ctx context.Context, model, credential string) (diarization.Pipeline, error) {
	if model == "" {
		model = DefaultModel
	}
	resp, err := l.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/pipeline",
		Body:   loadRequest{Model: model},
		Auth:   httpclient.BearerAuth(credential),
	})
	switch {
	case httpclient.IsAuth(err):
		return nil, fmt.Errorf("pyannote: host rejected the token for %s, check that its terms are accepted on Hugging Face: %w", model, err)
	case httpclient.IsTimeout(err):
		return nil, fmt.Errorf("pyannote: load %s timed out: %w", model, err)
	case err != nil:
		return nil, fmt.Errorf("pyannote: load %s: %w", model, err)
	}
	var out loadResponse
	if err := resp.JSON(&out); err != nil {
		return nil, fmt.Errorf("pyannote: decode load response: %w", err)
	}
	if out.PipelineID == "" {
		return nil, fmt.Errorf("pyannote: host returned no pipeline_id for %s", model)
	}
	return &Pipeline{id: out.PipelineID, client: l.client}, nil
}

// Pipeline is a pipeline held by the model host.
type Pipeline struct {
	id     string
	client *httpclient.Client
}

// ID is the host-assigned pipeline id.
func (p *Pipeline) ID() string { return p.id }

// Diarize uploads the audio at req.AudioPath.
func (p *Pipeline) Diarize(ctx context.Context, req diarization.Request) (*diarization.Result, error) {
	data, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("pyannote: read audio: %w", err)
	}

	fields := map[string]string{}
	setHint(fields, "num_speakers", req.NumSpeakers)
	setHint(fields, "min_speakers", req.MinSpeakers)
	setHint(fields, "max_speakers", req.MaxSpeakers)

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/pipelines/" + url.PathEscape(p.id) + "/diarize",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{{
				FieldName:   "audio",
				FileName:    filepath.Base(req.AudioPath),
				ContentType: "audio/wav",
				Data:        data,
			}},
		},
	})
	switch {
	case httpclient.IsValidation(err):
		return nil, diarization.InputRejected(fmt.Errorf("pyannote: host rejected the audio: %w", err))
	case httpclient.IsServerError(err):
		return nil, fmt.Errorf("pyannote: host failed to diarize: %w", err)
	case err != nil:
		return nil, fmt.Errorf("pyannote: diarize: %w", err)
	}

	var result diarization.Result
	if err := resp.JSON(&result); err != nil {
		return nil, fmt.Errorf("pyannote: decode diarization: %w", err)
	}
	for i, t := range result.Turns {
		if t.End < t.Start {
			return nil, fmt.Errorf("pyannote: turn %d ends before it starts (%.3f < %.3f)", i, t.End, t.Start)
		}
	}
	if result.Turns == nil {
		result.Turns = []diarization.Turn{}
	}
	return &result, nil
}

// Close releases the pipeline on the host.
func (p *Pipeline) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodDelete,
		Path:   "/pipelines/" + url.PathEscape(p.id),
	})
	if err != nil && !httpclient.IsNotFound(err) {
		return fmt.Errorf("pyannote: release pipeline %s: %w", p.id, err)
	}
	return nil
}

func setHint(fields map[string]string, name string, v *int) {
	if v != nil {
		fields[name] = strconv.Itoa(*v)
	}
}
