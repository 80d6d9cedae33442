package util

import "testing"

func TestCoalesce(t *testing.T) {
	if got := Coalesce("", "", "pyannote", "command"); got != "pyannote" {
		t.Errorf("expected 'pyannote', got %q", got)
	}
	if got := Coalesce(0, 0, 16000); got != 16000 {
		t.Errorf("expected 16000, got %d", got)
	}
	if got := Coalesce("", ""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
