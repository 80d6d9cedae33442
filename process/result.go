package process

import (
	"fmt"
	"strings"
	"time"
)

const stderrTailLen = 512

// Result holds the output and status of a completed subprocess.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is -1 when the process was killed or never started.
	ExitCode int
	Duration time.Duration
}

// StderrTail returns the trimmed end of stderr, short enough for an error
// message or a log field.
func (r *Result) StderrTail() string {
	if r == nil {
		return ""
	}
	s := strings.TrimSpace(string(r.Stderr))
	if len(s) > stderrTailLen {
		s = "..." + s[len(s)-stderrTailLen:]
	}
	return s
}

// WithStderr appends the stderr tail to err, since that is where a failed
// tool says what went wrong. It returns err unchanged when either is empty.
func (r *Result) WithStderr(err error) error {
	tail := r.StderrTail()
	if err == nil || tail == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, tail)
}
