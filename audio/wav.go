package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
	wavHeaderSize       = 44
)

// ErrNotWAV is returned for input that is not a RIFF/WAVE container.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE stream")

// PCM is interleaved signed 16-bit audio.
type PCM struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// Frames is the number of samples per channel.
func (p *PCM) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Duration in seconds.
func (p *PCM) Duration() float64 {
	if p.SampleRate == 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.SampleRate)
}

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// DecodeWAV parses 16-bit PCM WAV. A data chunk whose declared size runs
// past the end of the input is clamped; ffmpeg writes such headers when
// its output is a pipe.
func DecodeWAV(data []byte) (*PCM, error) {
	if !IsWAV(data) {
		return nil, ErrNotWAV
	}

	var (
		pcm       PCM
		gotFormat bool
		pos       = 12
	)
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("audio: fmt chunk too short (%d bytes)", size)
			}
			format := binary.LittleEndian.Uint16(data[body:])
			pcm.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			pcm.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bits := binary.LittleEndian.Uint16(data[body+14:])
			if format != wavFormatPCM && format != wavFormatExtensible {
				return nil, fmt.Errorf("audio: unsupported WAV format tag %#x", format)
			}
			if bits != 16 {
				return nil, fmt.Errorf("audio: unsupported bit depth %d", bits)
			}
			if pcm.Channels < 1 || pcm.SampleRate < 1 {
				return nil, fmt.Errorf("audio: invalid fmt chunk (channels=%d rate=%d)", pcm.Channels, pcm.SampleRate)
			}
			gotFormat = true
		case "data":
			if !gotFormat {
				return nil, errors.New("audio: data chunk before fmt chunk")
			}
			n := size / 2
			pcm.Samples = make([]int16, n)
			for i := range n {
				pcm.Samples[i] = int16(binary.LittleEndian.Uint16(data[body+2*i:]))
			}
			pcm.Samples = pcm.Samples[:len(pcm.Samples)-len(pcm.Samples)%pcm.Channels]
			return &pcm, nil
		}

		// Chunks are word aligned.
		pos = body + size + size%2
	}
	if !gotFormat {
		return nil, errors.New("audio: missing fmt chunk")
	}
	return nil, errors.New("audio: missing data chunk")
}

// EncodeWAV writes p as a canonical 44-byte-header PCM WAV.
func EncodeWAV(p *PCM) []byte {
	dataLen := len(p.Samples) * 2
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + dataLen)

	le := binary.LittleEndian
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, le, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, le, uint32(16))
	_ = binary.Write(&buf, le, uint16(wavFormatPCM))
	_ = binary.Write(&buf, le, uint16(p.Channels))
	_ = binary.Write(&buf, le, uint32(p.SampleRate))
	_ = binary.Write(&buf, le, uint32(p.SampleRate*p.Channels*2))
	_ = binary.Write(&buf, le, uint16(p.Channels*2))
	_ = binary.Write(&buf, le, uint16(16))

	buf.WriteString("data")
	_ = binary.Write(&buf, le, uint32(dataLen))
	_ = binary.Write(&buf, le, p.Samples)
	return buf.Bytes()
}
