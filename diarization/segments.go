package diarization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbukum/diarizer/validation"
)

// ParseSegments decodes the JSON array sent in the "segments" form field.
// An empty string means no segments.
func ParseSegments(raw string) ([]TranscriptSegment, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return []TranscriptSegment{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	var segments []TranscriptSegment
	if err := dec.Decode(&segments); err != nil {
		return nil, fmt.Errorf("segments must be a JSON array of {start, end, text} objects: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("segments: unexpected data after JSON array")
	}
	if segments == nil {
		segments = []TranscriptSegment{}
	}
	if err := validation.ValidateSlice("segments", segments); err != nil {
		return nil, err
	}
	for i, s := range segments {
		if s.Start != nil && s.End != nil && *s.End < *s.Start {
			return nil, fmt.Errorf("segments[%d]: end %.3f is before start %.3f", i, *s.End, *s.Start)
		}
	}
	return segments, nil
}
