package audio

import (
	"context"
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler is a pure-Go normalizer for PCM16 WAV input. It down-mixes to
// mono and converts the sample rate; other containers are rejected so a
// Chain can hand them to FFmpeg.
type Resampler struct {
	quality resampling.QualitySpec
}

// NewResampler returns a Resampler using the high quality preset.
func NewResampler() *Resampler {
	return &Resampler{quality: resampling.QualitySpec{Preset: resampling.QualityHigh}}
}

func (r *Resampler) Name() string { return "resampler" }

func (r *Resampler) Normalize(ctx context.Context, in []byte) ([]byte, error) {
	pcm, err := DecodeWAV(in)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mono := Downmix(pcm)
	if mono.SampleRate == TargetSampleRate {
		return EncodeWAV(mono), nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(mono.SampleRate),
		OutputRate: TargetSampleRate,
		Channels:   TargetChannels,
		Quality:    r.quality,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: create resampler %d->%d: %w", mono.SampleRate, TargetSampleRate, err)
	}

	input := make([]float64, len(mono.Samples))
	for i, s := range mono.Samples {
		input[i] = float64(s) / 32768.0
	}
	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("audio: resample: %w", err)
	}

	out := &PCM{SampleRate: TargetSampleRate, Channels: TargetChannels, Samples: make([]int16, len(output))}
	for i, s := range output {
		out.Samples[i] = toInt16(s)
	}
	return EncodeWAV(out), nil
}

// Downmix averages interleaved channels into one. Mono input is returned
// as is.
func Downmix(p *PCM) *PCM {
	if p.Channels <= 1 {
		return p
	}
	frames := p.Frames()
	out := &PCM{SampleRate: p.SampleRate, Channels: 1, Samples: make([]int16, frames)}
	for f := range frames {
		var sum int
		for c := range p.Channels {
			sum += int(p.Samples[f*p.Channels+c])
		}
		out.Samples[f] = int16(sum / p.Channels)
	}
	return out
}

func toInt16(s float64) int16 {
	switch {
	case s > 1.0:
		return 32767
	case s < -1.0:
		return -32768
	default:
		return int16(s * 32767.0)
	}
}
