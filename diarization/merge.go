package diarization

import (
	"sort"

	"github.com/kbukum/diarizer/util"
)

// Merge labels every segment with the speaker whose turns overlap it for
// the longest total time. Ties go to the lexicographically smallest
// speaker id; segments without any strictly overlapping turn get
// FallbackSpeaker. Output order matches segments and neither input is
// modified. Missing bounds default to 0 and the result duration, and a
// defaulted end never precedes the start.
func Merge(result *Result, segments []TranscriptSegment) []MergedSegment {
	var (
		turns    []Turn
		duration float64
	)
	if result != nil {
		turns, duration = result.Turns, result.Duration
	}

	out := make([]MergedSegment, len(segments))
	for i, seg := range segments {
		start, end := util.Deref(seg.Start), duration
		if seg.End != nil {
			end = *seg.End
		} else if start > end {
			// Starts after the recording with no end: empty interval at start.
			end = start
		}
		out[i] = MergedSegment{
			Start:   start,
			End:     end,
			Text:    seg.Text,
			Speaker: dominantSpeaker(turns, start, end),
		}
	}
	return out
}

func dominantSpeaker(turns []Turn, start, end float64) string {
	totals := make(map[string]float64)
	for _, t := range turns {
		if t.Overlaps(start, end) {
			totals[t.Speaker] += t.Overlap(start, end)
		}
	}
	if len(totals) == 0 {
		return FallbackSpeaker
	}

	best, bestTotal := "", -1.0
	for speaker, total := range totals {
		if total > bestTotal || (total == bestTotal && speaker < best) {
			best, bestTotal = speaker, total
		}
	}
	return best
}

// Speakers returns the distinct labels used by segments, sorted.
func Speakers(segments []MergedSegment) []string {
	seen := make(map[string]struct{}, len(segments))
	speakers := make([]string, 0)
	for _, s := range segments {
		if _, ok := seen[s.Speaker]; ok {
			continue
		}
		seen[s.Speaker] = struct{}{}
		speakers = append(speakers, s.Speaker)
	}
	sort.Strings(speakers)
	return speakers
}
