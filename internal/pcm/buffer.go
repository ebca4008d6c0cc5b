// SPDX-License-Identifier: MIT

// Package pcm holds decoded audio in memory as channel-separated float32
// samples, together with the streaming source contract the format decoders
// implement and the sample conversions shared by the render and export paths.
package pcm

import (
	"io"

	"github.com/pkg/errors"
)

var (
	ErrNoChannels      = errors.New("pcm: buffer needs at least one channel")
	ErrBadSampleRate   = errors.New("pcm: sample rate must be positive")
	ErrRaggedChannels  = errors.New("pcm: channels differ in length")
	ErrInvalidDstSize  = errors.New("pcm: dst size must be a multiple of channels")
	ErrTooManyChannels = errors.New("pcm: channel count exceeds limit")
)

// MaxChannels bounds the channel count accepted from a decoder.
const MaxChannels = 8

// Buffer is an immutable block of decoded audio. Every channel holds exactly
// Frames samples in the nominal range [-1, 1].
type Buffer struct {
	Channels   [][]float32
	SampleRate int
	Frames     int
}

// New allocates a silent buffer.
func New(channels, frames, sampleRate int) (*Buffer, error) {
	if channels <= 0 {
		return nil, ErrNoChannels
	}
	if channels > MaxChannels {
		return nil, ErrTooManyChannels
	}
	if sampleRate <= 0 {
		return nil, ErrBadSampleRate
	}
	if frames < 0 {
		frames = 0
	}
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}
	return &Buffer{Channels: data, SampleRate: sampleRate, Frames: frames}, nil
}

// FromChannels wraps existing sample slices without copying them.
func FromChannels(sampleRate int, channels ...[]float32) (*Buffer, error) {
	if len(channels) == 0 {
		return nil, ErrNoChannels
	}
	if sampleRate <= 0 {
		return nil, ErrBadSampleRate
	}
	frames := len(channels[0])
	for _, ch := range channels[1:] {
		if len(ch) != frames {
			return nil, ErrRaggedChannels
		}
	}
	return &Buffer{Channels: channels, SampleRate: sampleRate, Frames: frames}, nil
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int { return len(b.Channels) }

// Duration returns the length of the buffer in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames) / float64(b.SampleRate)
}

// Channel returns the samples of channel ch, or nil when out of range.
func (b *Buffer) Channel(ch int) []float32 {
	if ch < 0 || ch >= len(b.Channels) {
		return nil
	}
	return b.Channels[ch]
}

// Source is a decoder's streaming view of a file. ReadSamples fills dst with
// interleaved samples and returns io.EOF once the stream is drained.
type Source interface {
	SampleRate() int
	Channels() int
	ReadSamples(dst []float32) (n int, err error)
	Close() error
}

// ReadAll drains src into a channel-separated Buffer and closes it.
func ReadAll(src Source) (*Buffer, error) {
	defer src.Close()

	channels := src.Channels()
	if channels <= 0 {
		return nil, ErrNoChannels
	}
	if channels > MaxChannels {
		return nil, ErrTooManyChannels
	}
	if src.SampleRate() <= 0 {
		return nil, ErrBadSampleRate
	}

	out := make([][]float32, channels)
	chunk := make([]float32, 4096*channels)
	// carry holds a trailing partial frame between reads.
	carry := make([]float32, 0, channels)

	for {
		n, err := src.ReadSamples(chunk)
		if n > 0 {
			samples := chunk[:n]
			if len(carry) > 0 {
				need := channels - len(carry)
				if need > len(samples) {
					need = len(samples)
				}
				carry = append(carry, samples[:need]...)
				samples = samples[need:]
				if len(carry) == channels {
					for ch, v := range carry {
						out[ch] = append(out[ch], v)
					}
					carry = carry[:0]
				}
			}
			whole := len(samples) - len(samples)%channels
			for i := 0; i < whole; i += channels {
				for ch := range channels {
					out[ch] = append(out[ch], samples[i+ch])
				}
			}
			carry = append(carry, samples[whole:]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "pcm: reading source")
		}
		if n == 0 {
			// A source that returns neither data nor an error would spin.
			break
		}
	}

	return FromChannels(src.SampleRate(), out...)
}
