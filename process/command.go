package process

import (
	"io"
	"time"
)

// Command configures a subprocess.
type Command struct {
	// Binary is an executable path or a name resolved via PATH.
	Binary string
	Args   []string
	// Dir is the working directory. Empty uses the current directory.
	Dir string
	// Env entries (KEY=value) are appended to os.Environ.
	Env []string
	// Stdin may be nil.
	Stdin io.Reader
	// GracePeriod between SIGTERM and SIGKILL. Defaults to 5s.
	GracePeriod time.Duration
}
