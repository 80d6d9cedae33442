package diarization

import (
	"context"
	"errors"

	"github.com/kbukum/diarizer/provider"
)

// Pipeline is a constructed model handle. Implementations must be safe for
// concurrent use.
type Pipeline interface {
	Diarize(ctx context.Context, req Request) (*Result, error)
}

// Loader constructs a Pipeline. Load is slow (model download and
// initialization) and is called at most once per Manager.
type Loader interface {
	provider.Provider
	Load(ctx context.Context, model, credential string) (Pipeline, error)
}

// ErrInputRejected marks a backend failure caused by the request itself,
// such as audio the model cannot decode. These never count against the
// circuit breaker.
var ErrInputRejected = errors.New("input rejected by the model")

// InputRejected wraps err so that errors.Is(err, ErrInputRejected) holds.
func InputRejected(err error) error {
	if err == nil {
		return nil
	}
	return &rejectedError{err: err}
}

type rejectedError struct{ err error }

func (e *rejectedError) Error() string        { return e.err.Error() }
func (e *rejectedError) Unwrap() error        { return e.err }
func (e *rejectedError) Is(target error) bool { return target == ErrInputRejected }

var backends = provider.NewRegistry[Loader]()

// RegisterBackend makes a backend available by name to NewLoader.
func RegisterBackend(name string, factory provider.Factory[Loader]) {
	backends.RegisterFactory(name, factory)
}

// NewLoader creates the named backend from its options block.
func NewLoader(name string, options map[string]any) (Loader, error) {
	return backends.Create(name, options)
}

// Backends lists registered backend names.
func Backends() []string {
	return backends.List()
}
