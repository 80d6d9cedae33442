package audio

import (
	"context"
	"errors"
	"fmt"
)

const (
	// TargetSampleRate is the rate the speaker model expects.
	TargetSampleRate = 16000
	// TargetChannels is mono.
	TargetChannels = 1
)

// Normalizer converts audio bytes into 16 kHz mono WAV.
type Normalizer interface {
	Name() string
	Normalize(ctx context.Context, in []byte) ([]byte, error)
}

// Nop returns its input unchanged.
type Nop struct{}

func (Nop) Name() string { return "nop" }

func (Nop) Normalize(_ context.Context, in []byte) ([]byte, error) {
	return in, nil
}

// Chain tries each normalizer in order and returns the first success.
type Chain []Normalizer

func (c Chain) Name() string { return "chain" }

// Normalize returns the joined errors of every member when all fail.
func (c Chain) Normalize(ctx context.Context, in []byte) ([]byte, error) {
	if len(c) == 0 {
		return nil, errors.New("audio: empty normalizer chain")
	}
	var errs []error
	for _, n := range c {
		out, err := n.Normalize(ctx, in)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
	}
	return nil, errors.Join(errs...)
}
