package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kbukum/diarizer/diarization"
	"github.com/kbukum/diarizer/util"
)

// readSegments loads a segments file. An empty path means no segments.
func readSegments(path string) ([]diarization.TranscriptSegment, error) {
	if path == "" {
		return []diarization.TranscriptSegment{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}
	segments, err := diarization.ParseSegments(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse segments %s: %w", path, err)
	}
	return segments, nil
}

// writeJSON prints v indented.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// optionalInt returns nil for flags left at their zero value.
func optionalInt(v int) *int {
	if v == 0 {
		return nil
	}
	return util.Ptr(v)
}
