package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/diarizer/diarization"
)

var mergeFlags struct {
	turns    string
	segments string
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Label transcript segments from saved diarization output",
	Long: `Merge a saved diarization result into transcript segments without
running a model.

The turns file holds {"duration": 12.5, "turns": [{"start", "end", "speaker"}]}.
The segments file holds [{"start", "end", "text"}]. Missing bounds
default to the start and end of the recording.

Examples:
  diarizer merge --turns turns.json --segments segments.json
  diarizer merge --turns turns.json > labelled.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMerge(mergeFlags.turns, mergeFlags.segments, cmd.OutOrStdout())
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeFlags.turns, "turns", "", "diarization result JSON file (required)")
	mergeCmd.Flags().StringVar(&mergeFlags.segments, "segments", "", "transcript segments JSON file")
	_ = mergeCmd.MarkFlagRequired("turns")
}

func runMerge(turnsPath, segmentsPath string, w io.Writer) error {
	data, err := os.ReadFile(turnsPath)
	if err != nil {
		return fmt.Errorf("read turns: %w", err)
	}
	var result diarization.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("parse turns %s: %w", turnsPath, err)
	}

	segments, err := readSegments(segmentsPath)
	if err != nil {
		return err
	}

	merged := diarization.Merge(&result, segments)
	return writeJSON(w, diarization.Response{
		Segments: merged,
		Duration: result.Duration,
		Speakers: diarization.Speakers(merged),
	})
}
