// SPDX-License-Identifier: MIT

// Package mp3 decodes MPEG-1/2 Layer III streams with hajimehoshi/go-mp3.
// The decoder always produces interleaved stereo.
package mp3

import (
	"encoding/binary"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/pkg/errors"

	"forestric/internal/pcm"
)

// mp3Reader is the part of gomp3.Decoder the source needs.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
	pending    int // bytes of a split sample left in buf from the last read
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return 2 }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		nb := make([]byte, need)
		copy(nb, s.buf[:s.pending])
		s.buf = nb
	}
	s.buf = s.buf[:need]

	n, err := io.ReadAtLeast(s.dec, s.buf[s.pending:need], 2-s.pending)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	n += s.pending
	samples := n / 2
	for i := range samples {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(s.buf[2*i:]))) / 32768
	}
	s.pending = n % 2
	if s.pending == 1 {
		s.buf[0] = s.buf[n-1]
	}

	if err != nil && err != io.EOF {
		return samples, errors.Wrap(err, "mp3: decoding")
	}
	if samples == 0 && err == io.EOF {
		return 0, io.EOF
	}
	return samples, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (pcm.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, errors.Wrap(err, "mp3: opening stream")
	}
	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}, nil
}
