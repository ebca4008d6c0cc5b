// SPDX-License-Identifier: MIT

// Package mp3enc wraps an MPEG Layer III encoder in a two-phase streaming
// object. Blocks of any size are pushed while the stream is open; Finish
// pads and encodes the remainder once and closes it.
package mp3enc

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"

	applog "forestric/internal/log"
)

// Bitrate is the only bitrate the encoder produces, in kbps.
const Bitrate = 128

var (
	// ErrClosed is returned by PushBlock and Finish after Finish.
	ErrClosed = errors.New("mp3 stream already finished")

	ErrUnsupportedSampleRate = errors.New("unsupported mp3 sample rate")
	ErrUnsupportedChannels   = errors.New("mp3 streams carry one or two channels")
	ErrUnsupportedBitrate    = errors.New("unsupported mp3 bitrate")
	errBlockMismatch         = errors.New("left and right blocks differ in length")
)

// State of a Stream.
type State int

const (
	Open State = iota
	Closed
)

func (s State) String() string {
	if s == Closed {
		return "closed"
	}
	return "open"
}

// Config describes the encoded stream.
type Config struct {
	SampleRate int
	Channels   int
	Bitrate    int // kbps; 0 means Bitrate
}

// Backend encodes interleaved 16-bit samples. Encode is always given exactly
// one MP3 frame.
type Backend interface {
	Encode(w *bytes.Buffer, interleaved []int16) error
}

// BackendFactory creates a backend for a validated config.
type BackendFactory func(cfg Config) (Backend, error)

// Stream is a streaming MP3 encoder with an Open -> Closed lifecycle.
// It is not safe for concurrent use.
type Stream struct {
	cfg       Config
	backend   Backend
	state     State
	frameSize int // samples per channel in one MP3 frame

	pending []int16 // interleaved samples short of a whole frame
	out     bytes.Buffer
	frames  int
}

// SamplesPerFrame returns the samples per channel in one Layer III frame:
// 1152 for MPEG-1 rates, 576 for MPEG-2 and 2.5.
func SamplesPerFrame(sampleRate int) int {
	if sampleRate >= 32000 {
		return 1152
	}
	return 576
}

// SupportedSampleRate reports whether Layer III can carry sampleRate.
func SupportedSampleRate(sampleRate int) bool {
	switch sampleRate {
	case 8000, 11025, 12000, 16000, 22050, 24000, 32000, 44100, 48000:
		return true
	}
	return false
}

// New opens a stream on the shine backend.
func New(cfg Config) (*Stream, error) {
	return NewWithBackend(cfg, NewShineBackend)
}

// NewWithBackend opens a stream on the backend made by factory.
func NewWithBackend(cfg Config, factory BackendFactory) (*Stream, error) {
	if cfg.Bitrate == 0 {
		cfg.Bitrate = Bitrate
	}
	if cfg.Bitrate != Bitrate {
		return nil, errors.Wrapf(ErrUnsupportedBitrate, "%d kbps", cfg.Bitrate)
	}
	if !SupportedSampleRate(cfg.SampleRate) {
		return nil, errors.Wrapf(ErrUnsupportedSampleRate, "%d Hz", cfg.SampleRate)
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return nil, errors.Wrapf(ErrUnsupportedChannels, "got %d", cfg.Channels)
	}

	backend, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create mp3 backend")
	}
	frameSize := SamplesPerFrame(cfg.SampleRate)
	applog.Debugf("MP3: stream open (%d Hz, %d ch, %d kbps, %d samples/frame)",
		cfg.SampleRate, cfg.Channels, cfg.Bitrate, frameSize)

	return &Stream{
		cfg:       cfg,
		backend:   backend,
		frameSize: frameSize,
		pending:   make([]int16, 0, frameSize*cfg.Channels*2),
	}, nil
}

// State returns the lifecycle state.
func (s *Stream) State() State { return s.state }

// Config returns the stream parameters.
func (s *Stream) Config() Config { return s.cfg }

// Frames returns how many MP3 frames have been encoded so far.
func (s *Stream) Frames() int { return s.frames }

// PushBlock appends one block per channel and returns whatever complete
// frames it produced, possibly nothing. Mono streams ignore right.
func (s *Stream) PushBlock(left, right []int16) ([]byte, error) {
	if s.state == Closed {
		return nil, ErrClosed
	}
	if s.cfg.Channels == 2 {
		if len(left) != len(right) {
			return nil, errors.Wrapf(errBlockMismatch, "left %d, right %d", len(left), len(right))
		}
		for i := range left {
			s.pending = append(s.pending, left[i], right[i])
		}
	} else {
		s.pending = append(s.pending, left...)
	}

	whole := len(s.pending) / (s.frameSize * s.cfg.Channels) * s.frameSize * s.cfg.Channels
	if whole == 0 {
		return nil, nil
	}
	if err := s.encode(s.pending[:whole]); err != nil {
		return nil, err
	}
	n := copy(s.pending, s.pending[whole:])
	s.pending = s.pending[:n]
	return s.drain(), nil
}

// Finish encodes the remaining samples, zero padded to a whole frame, and
// closes the stream. It may be called once.
func (s *Stream) Finish() ([]byte, error) {
	if s.state == Closed {
		return nil, ErrClosed
	}
	s.state = Closed

	if len(s.pending) > 0 {
		frameLen := s.frameSize * s.cfg.Channels
		padded := (len(s.pending) + frameLen - 1) / frameLen * frameLen
		for len(s.pending) < padded {
			s.pending = append(s.pending, 0)
		}
		if err := s.encode(s.pending); err != nil {
			return nil, err
		}
		s.pending = s.pending[:0]
	}
	applog.Debugf("MP3: stream closed after %d frames", s.frames)
	return s.drain(), nil
}

// encode feeds samples to the backend one frame at a time and converts its
// panics into errors. len(samples) is a whole number of frames.
func (s *Stream) encode(samples []int16) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mp3 backend panic: %v", r)
		}
	}()
	frameLen := s.frameSize * s.cfg.Channels
	for k := 0; k+frameLen <= len(samples); k += frameLen {
		if err := s.backend.Encode(&s.out, samples[k:k+frameLen]); err != nil {
			return errors.Wrap(err, "mp3 backend")
		}
		s.frames++
	}
	return nil
}

func (s *Stream) drain() []byte {
	if s.out.Len() == 0 {
		return nil
	}
	chunk := bytes.Clone(s.out.Bytes())
	s.out.Reset()
	return chunk
}
