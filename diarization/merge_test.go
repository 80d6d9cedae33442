package diarization

import (
	"reflect"
	"testing"

	"github.com/kbukum/diarizer/util"
)

func exampleResult() *Result {
	return &Result{
		Duration: 9.0,
		Turns: []Turn{
			{Interval: Interval{Start: 0, End: 5}, Speaker: "A"},
			{Interval: Interval{Start: 4, End: 9}, Speaker: "B"},
		},
	}
}

func seg(start, end float64, text string) TranscriptSegment {
	return TranscriptSegment{Start: util.Ptr(start), End: util.Ptr(end), Text: text}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		segment TranscriptSegment
		want    MergedSegment
	}{
		{"single overlap", seg(0, 4, "hi"), MergedSegment{0, 4, "hi", "A"}},
		{"tie picks smallest id", seg(3, 6, "both"), MergedSegment{3, 6, "both", "A"}},
		{"larger overlap wins", seg(4.5, 8, "later"), MergedSegment{4.5, 8, "later", "B"}},
		{"no overlap falls back", seg(20, 21, "gap"), MergedSegment{20, 21, "gap", FallbackSpeaker}},
		{"touching endpoint is not overlap", seg(9, 10, "edge"), MergedSegment{9, 10, "edge", FallbackSpeaker}},
		{"default bounds", TranscriptSegment{Text: "only text"}, MergedSegment{0, 9, "only text", "A"}},
		{"default end", TranscriptSegment{Start: util.Ptr(6.0), Text: "tail"}, MergedSegment{6, 9, "tail", "B"}},
		{"default end past duration", TranscriptSegment{Start: util.Ptr(20.0), Text: "late"}, MergedSegment{20, 20, "late", FallbackSpeaker}},
		{"default start", TranscriptSegment{End: util.Ptr(3.0), Text: "head"}, MergedSegment{0, 3, "head", "A"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(exampleResult(), []TranscriptSegment{tc.segment})
			if len(got) != 1 || got[0] != tc.want {
				t.Errorf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestMerge_SumsTurnsPerSpeaker(t *testing.T) {
	// B has two short turns that together outweigh A's single turn.
	result := &Result{Duration: 10, Turns: []Turn{
		{Interval: Interval{Start: 0, End: 1.5}, Speaker: "B"},
		{Interval: Interval{Start: 1.5, End: 2.5}, Speaker: "A"},
		{Interval: Interval{Start: 2.5, End: 4}, Speaker: "B"},
	}}
	got := Merge(result, []TranscriptSegment{seg(0, 4, "x")})
	if got[0].Speaker != "B" {
		t.Errorf("expected B, got %s", got[0].Speaker)
	}
}

func TestMerge_PreservesOrder(t *testing.T) {
	segments := []TranscriptSegment{seg(6, 8, "third"), seg(0, 1, "first"), seg(20, 21, "none")}
	result := exampleResult()
	reversed := &Result{Duration: result.Duration, Turns: []Turn{result.Turns[1], result.Turns[0]}}

	for _, r := range []*Result{result, reversed} {
		got := Merge(r, segments)
		texts := []string{got[0].Text, got[1].Text, got[2].Text}
		if !reflect.DeepEqual(texts, []string{"third", "first", "none"}) {
			t.Errorf("order changed: %v", texts)
		}
		if got[0].Speaker != "B" || got[1].Speaker != "A" {
			t.Errorf("unexpected labels %+v", got)
		}
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	result := exampleResult()
	segments := []TranscriptSegment{{Text: "defaults"}}
	Merge(result, segments)

	if segments[0].Start != nil || segments[0].End != nil {
		t.Error("segment bounds must not be filled in place")
	}
	if !reflect.DeepEqual(result, exampleResult()) {
		t.Error("result was modified")
	}
}

func TestMerge_EmptyInputs(t *testing.T) {
	if got := Merge(exampleResult(), nil); len(got) != 0 {
		t.Errorf("expected no segments, got %v", got)
	}
	got := Merge(nil, []TranscriptSegment{{Text: "x"}})
	if got[0].Speaker != FallbackSpeaker || got[0].End != 0 {
		t.Errorf("expected fallback with zero duration, got %+v", got[0])
	}
}

func TestSpeakers(t *testing.T) {
	got := Speakers([]MergedSegment{{Speaker: "B"}, {Speaker: "A"}, {Speaker: "B"}, {Speaker: FallbackSpeaker}})
	want := []string{"A", "B", FallbackSpeaker}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := Speakers(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestInterval_Overlap(t *testing.T) {
	i := Interval{Start: 2, End: 5}
	if got := i.Overlap(4, 10); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
	if got := i.Overlap(6, 7); got != 0 {
		t.Errorf("expected 0 for disjoint spans, got %v", got)
	}
	if i.Overlaps(5, 6) {
		t.Error("touching spans must not overlap")
	}
}
