// SPDX-License-Identifier: MIT

// Package vorbis decodes Ogg Vorbis streams with jfreymuth/oggvorbis.
package vorbis

import (
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/pkg/errors"

	"forestric/internal/pcm"
)

// oggReader is the part of oggvorbis.Reader the source needs.
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type source struct {
	dec        oggReader
	sampleRate int
	channels   int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }

// ReadSamples reads whole frames only, so dst is trimmed to a multiple of
// the channel count.
func (s *source) ReadSamples(dst []float32) (int, error) {
	dst = dst[:len(dst)-len(dst)%s.channels]
	if len(dst) == 0 {
		return 0, pcm.ErrInvalidDstSize
	}
	n, err := s.dec.Read(dst)
	if err != nil && err != io.EOF {
		return n, errors.Wrap(err, "vorbis: decoding")
	}
	if n == 0 && err == io.EOF {
		return 0, io.EOF
	}
	return n, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (pcm.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "vorbis: opening stream")
	}
	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}, nil
}
