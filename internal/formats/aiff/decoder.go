// SPDX-License-Identifier: MIT

// Package aiff decodes AIFF and AIFF-C files through go-audio/aiff.
package aiff

import (
	"bytes"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/pkg/errors"

	"forestric/internal/pcm"
)

var (
	ErrNotAiffFile      = errors.New("aiff: not an AIFF file")
	ErrUnsupportedDepth = errors.New("aiff: unsupported bit depth")
	ErrMissingFormat    = errors.New("aiff: missing COMM chunk")
)

// aiffReader is an interface for aiff.Decoder to allow testing
type aiffReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type source struct {
	dec        aiffReader
	sampleRate int
	channels   int
	maxVal     float32
	intBuf     *goaudio.IntBuffer
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.dec.Format(),
		}
	} else {
		s.intBuf.Data = s.intBuf.Data[:len(dst)]
	}

	n, err := s.dec.PCMBuffer(s.intBuf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, errors.Wrap(err, "aiff: reading pcm")
		}
		return 0, io.EOF
	}
	for i := range n {
		dst[i] = float32(s.intBuf.Data[i]) / s.maxVal
	}
	if err == io.EOF {
		err = nil
	}
	return n, err
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (pcm.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, "aiff: reading data")
		}
		rs = bytes.NewReader(data)
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	maxVal, err := fullScale(int(dec.BitDepth))
	if err != nil {
		return nil, err
	}
	format := dec.Format()
	if format == nil {
		return nil, ErrMissingFormat
	}

	return &source{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		maxVal:     maxVal,
	}, nil
}

// fullScale returns the magnitude of the most negative sample for a signed
// integer width.
func fullScale(bitDepth int) (float32, error) {
	switch bitDepth {
	case 8:
		return 128, nil
	case 16:
		return 32768, nil
	case 24:
		return 8388608, nil
	case 32:
		return 2147483648, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedDepth, "%d bits", bitDepth)
}
