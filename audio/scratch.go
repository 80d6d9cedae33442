package audio

import (
	"errors"
	"fmt"
	"os"
)

// WithScratchFile writes data to a new temporary file in dir (the system
// temp dir when empty), calls fn with its path and removes the file
// afterwards, also when fn returns an error or panics.
func WithScratchFile(dir, pattern string, data []byte, fn func(path string) error) (err error) {
	if pattern == "" {
		pattern = "diarize-*.wav"
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("audio: create scratch file: %w", err)
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = fmt.Errorf("audio: remove scratch file: %w", rmErr)
		}
	}()

	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("audio: write scratch file: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("audio: close scratch file: %w", cerr)
	}
	return fn(path)
}
