package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/diarizer/diarization"
	"github.com/kbukum/diarizer/logger"
)

type diarizeOptions struct {
	audio       string
	segments    string
	numSpeakers int
	minSpeakers int
	maxSpeakers int
}

var diarizeFlags diarizeOptions

var diarizeCmd = &cobra.Command{
	Use:   "diarize",
	Short: "Label a recording locally without the HTTP service",
	Long: `Build the configured pipeline, wait for it to load, then diarize one
file and print the labelled segments. Logs go to stderr.

Examples:
  HF_TOKEN=hf_... diarizer diarize --audio meeting.wav --segments meeting.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(globalFlags.configFile, globalFlags.envFile)
		if err != nil {
			return err
		}
		cfg.Logging.Output = "stderr"
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return err
		}
		log := logger.New(&cfg.Logging, cfg.Name)
		return runDiarize(cmd.Context(), cfg, diarizeFlags, log, cmd.OutOrStdout())
	},
}

func init() {
	f := diarizeCmd.Flags()
	f.StringVar(&diarizeFlags.audio, "audio", "", "audio file (required)")
	f.StringVar(&diarizeFlags.segments, "segments", "", "transcript segments JSON file")
	f.IntVar(&diarizeFlags.numSpeakers, "num-speakers", 0, "exact number of speakers")
	f.IntVar(&diarizeFlags.minSpeakers, "min-speakers", 0, "minimum number of speakers")
	f.IntVar(&diarizeFlags.maxSpeakers, "max-speakers", 0, "maximum number of speakers")
	_ = diarizeCmd.MarkFlagRequired("audio")
}

func runDiarize(ctx context.Context, cfg *Config, opts diarizeOptions, log *logger.Logger, w io.Writer) error {
	data, err := os.ReadFile(opts.audio)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	var segments []byte
	if opts.segments != "" {
		if segments, err = os.ReadFile(opts.segments); err != nil {
			return fmt.Errorf("read segments: %w", err)
		}
	}

	manager, err := newManager(cfg.Pipeline, log, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Stop(context.Background()); err != nil {
			log.Warn("Pipeline release failed", logger.ErrorFields("stop", err))
		}
	}()
	if _, err := manager.Wait(ctx); err != nil {
		return err
	}

	service := newService(cfg, manager, nil, log, nil)
	resp, err := service.Diarize(ctx, diarization.Input{
		Audio:    data,
		Segments: string(segments),
		Hints: diarization.SpeakerHints{
			NumSpeakers: optionalInt(opts.numSpeakers),
			MinSpeakers: optionalInt(opts.minSpeakers),
			MaxSpeakers: optionalInt(opts.maxSpeakers),
		},
	})
	if err != nil {
		return err
	}
	return writeJSON(w, resp)
}
