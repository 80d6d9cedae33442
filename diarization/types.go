package diarization

// FallbackSpeaker labels segments that no diarization turn overlaps.
const FallbackSpeaker = "SPEAKER_1"

// Interval is a span of audio in seconds with Start <= End.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Overlap returns the length of the intersection with [start, end], or 0.
func (i Interval) Overlap(start, end float64) float64 {
	d := min(i.End, end) - max(i.Start, start)
	if d < 0 {
		return 0
	}
	return d
}

// Overlaps reports strict overlap: touching endpoints do not count.
func (i Interval) Overlaps(start, end float64) bool {
	return i.Start < end && i.End > start
}

// Turn is a span attributed to one speaker by the model.
type Turn struct {
	Interval
	Speaker string `json:"speaker"`
}

// Result is the model output for one recording. It is not modified after
// the backend returns it.
type Result struct {
	Turns    []Turn  `json:"turns"`
	Duration float64 `json:"duration"`
}

// TranscriptSegment is a caller-supplied span of text. Missing bounds
// default to the start and end of the recording.
type TranscriptSegment struct {
	Start *float64 `json:"start,omitempty" validate:"omitempty,gte=0"`
	End   *float64 `json:"end,omitempty" validate:"omitempty,gte=0"`
	Text  string   `json:"text"`
}

// MergedSegment is a transcript segment with resolved bounds and a speaker.
type MergedSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}

// Response is the body of a successful diarization request.
type Response struct {
	Segments []MergedSegment `json:"segments"`
	Duration float64         `json:"duration"`
	Speakers []string        `json:"speakers"`
}

// Request is one model invocation. Speaker hints are optional.
type Request struct {
	AudioPath   string `json:"audio_path"`
	NumSpeakers *int   `json:"num_speakers,omitempty" validate:"omitempty,gte=1"`
	MinSpeakers *int   `json:"min_speakers,omitempty" validate:"omitempty,gte=1"`
	MaxSpeakers *int   `json:"max_speakers,omitempty" validate:"omitempty,gte=1"`
}
