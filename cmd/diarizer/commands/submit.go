package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/diarizer/diarization/client"
	"github.com/kbukum/diarizer/resilience"
)

type submitOptions struct {
	url         string
	audio       string
	segments    string
	token       string
	timeout     time.Duration
	maxAttempts int
	numSpeakers int
	minSpeakers int
	maxSpeakers int
}

var submitFlags submitOptions

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Send audio to a running service",
	Long: `Upload an audio file and optional transcript segments to a running
diarization service and print the labelled segments.

While the service is still loading its pipeline it answers 202; submit
keeps polling with backoff until it gets a result or gives up.

Examples:
  diarizer submit --url http://localhost:8000 --audio meeting.wav
  diarizer submit --url http://localhost:8000 --audio call.mp3 --segments call.json --num-speakers 2`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSubmit(cmd.Context(), submitFlags, cmd.OutOrStdout())
	},
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&submitFlags.url, "url", "http://localhost:8000", "service base URL")
	f.StringVar(&submitFlags.audio, "audio", "", "audio file (required)")
	f.StringVar(&submitFlags.segments, "segments", "", "transcript segments JSON file")
	f.StringVar(&submitFlags.token, "token", os.Getenv("DIARIZER_TOKEN"), "bearer token for a secured service")
	f.DurationVar(&submitFlags.timeout, "timeout", 10*time.Minute, "per-request timeout")
	f.IntVar(&submitFlags.maxAttempts, "max-attempts", 30, "requests to make while the pipeline loads")
	f.IntVar(&submitFlags.numSpeakers, "num-speakers", 0, "exact number of speakers")
	f.IntVar(&submitFlags.minSpeakers, "min-speakers", 0, "minimum number of speakers")
	f.IntVar(&submitFlags.maxSpeakers, "max-speakers", 0, "maximum number of speakers")
	_ = submitCmd.MarkFlagRequired("audio")
}

func runSubmit(ctx context.Context, opts submitOptions, w io.Writer) error {
	data, err := os.ReadFile(opts.audio)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	segments, err := readSegments(opts.segments)
	if err != nil {
		return err
	}

	c, err := client.New(client.Config{
		BaseURL: opts.url,
		Token:   opts.token,
		Timeout: opts.timeout,
		Poll:    resilience.RetryConfig{MaxAttempts: opts.maxAttempts},
	})
	if err != nil {
		return err
	}

	resp, err := c.Diarize(ctx, data, filepath.Base(opts.audio), client.Options{
		Segments:    segments,
		NumSpeakers: optionalInt(opts.numSpeakers),
		MinSpeakers: optionalInt(opts.minSpeakers),
		MaxSpeakers: optionalInt(opts.maxSpeakers),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, resp)
}
