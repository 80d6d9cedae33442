// Package client calls a running diarization service. It uploads audio
// and transcript segments and keeps polling while the service reports that
// its pipeline is still loading.
package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kbukum/diarizer/diarization"
	"github.com/kbukum/diarizer/errors"
	"github.com/kbukum/diarizer/httpclient"
	"github.com/kbukum/diarizer/resilience"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// Token is sent as a bearer token when the service requires auth.
	Token string
	// Timeout bounds each request.
	Timeout time.Duration
	// Poll controls waiting for the pipeline to load. MaxAttempts counts
	// the first request.
	Poll resilience.RetryConfig
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
	if c.Poll.MaxAttempts <= 0 {
		c.Poll.MaxAttempts = 30
	}
	if c.Poll.InitialBackoff <= 0 {
		c.Poll.InitialBackoff = 2 * time.Second
	}
	if c.Poll.MaxBackoff <= 0 {
		c.Poll.MaxBackoff = 30 * time.Second
	}
	c.Poll.RetryIf = IsLoading
}

// StatusError is a non-200 answer from the service.
type StatusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("diarization service answered %d (%s): %s", e.StatusCode, e.Status, e.Message)
}

// IsLoading reports whether err is the service's 202 loading answer.
func IsLoading(err error) bool {
	var se *StatusError
	return stderrors.As(err, &se) && se.StatusCode == http.StatusAccepted
}

// Client talks to one diarization service.
type Client struct {
	http *httpclient.Client
	cfg  Config
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	hc, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Auth:    httpclient.BearerAuth(cfg.Token),
	})
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, cfg: cfg}, nil
}

// Options are the optional request fields.
type Options struct {
	Segments    []diarization.TranscriptSegment
	NumSpeakers *int
	MinSpeakers *int
	MaxSpeakers *int
}

// Diarize uploads audio and returns the labelled segments, polling while
// the service answers 202.
func (c *Client) Diarize(ctx context.Context, audio []byte, filename string, opts Options) (*diarization.Response, error) {
	fields := map[string]string{}
	if opts.Segments != nil {
		raw, err := json.Marshal(opts.Segments)
		if err != nil {
			return nil, fmt.Errorf("encode segments: %w", err)
		}
		fields["segments"] = string(raw)
	}
	for name, v := range map[string]*int{
		"num_speakers": opts.NumSpeakers,
		"min_speakers": opts.MinSpeakers,
		"max_speakers": opts.MaxSpeakers,
	} {
		if v != nil {
			fields[name] = strconv.Itoa(*v)
		}
	}
	if filename == "" {
		filename = "audio.wav"
	}

	return resilience.Retry(ctx, c.cfg.Poll, func() (*diarization.Response, error) {
		resp, err := c.http.Do(ctx, httpclient.Request{
			Method: http.MethodPost,
			Path:   "/diarize",
			Body: &httpclient.MultipartBody{
				Fields: fields,
				Files:  []httpclient.FileField{{FieldName: "audio", FileName: filename, Data: audio}},
			},
		})
		if err != nil {
			if resp != nil {
				return nil, statusError(resp)
			}
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, statusError(resp)
		}
		var out diarization.Response
		if err := resp.JSON(&out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &out, nil
	})
}

// Health is the service's /health body.
type Health struct {
	Status         string `json:"status"`
	PipelineLoaded bool   `json:"pipeline_loaded"`
	PipelineState  string `json:"pipeline_state"`
}

// Health fetches /health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	if err != nil {
		return nil, err
	}
	var h Health
	if err := resp.JSON(&h); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	return &h, nil
}

func statusError(resp *httpclient.Response) error {
	var body errors.StatusResponse
	_ = resp.JSON(&body)
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}
	return &StatusError{StatusCode: resp.StatusCode, Status: body.Status, Message: body.Message}
}
