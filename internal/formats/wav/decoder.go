// SPDX-License-Identifier: MIT

// Package wav decodes RIFF/WAVE files with integer PCM payloads.
package wav

import (
	"bytes"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	"forestric/internal/pcm"
)

var (
	ErrNotWavFile        = errors.New("wav: not a RIFF/WAVE file")
	ErrUnsupportedFormat = errors.New("wav: only integer PCM is supported")
	ErrUnsupportedDepth  = errors.New("wav: unsupported bit depth")
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// wavReader is the part of wav.Decoder the source needs.
type wavReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type source struct {
	dec        wavReader
	sampleRate int
	channels   int
	scale      float32
	offset     int
	intBuf     *goaudio.IntBuffer
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if cap(s.intBuf.Data) < len(dst) {
		s.intBuf.Data = make([]int, len(dst))
	}
	s.intBuf.Data = s.intBuf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.intBuf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, errors.Wrap(err, "wav: reading pcm")
		}
		return 0, io.EOF
	}
	for i := range n {
		dst[i] = float32(s.intBuf.Data[i]-s.offset) / s.scale
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
			return nil, errors.Wrap(err, "wav: reading data")
		}
		rs = bytes.NewReader(data)
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, errors.Wrap(err, "wav: locating data chunk")
	}
	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return nil, ErrUnsupportedFormat
	}

	scale, offset, err := scaleFor(int(dec.BitDepth))
	if err != nil {
		return nil, err
	}
	format := dec.Format()
	return &source{
		dec:        dec,
		sampleRate: int(dec.SampleRate),
		channels:   int(dec.NumChans),
		scale:      scale,
		offset:     offset,
		intBuf: &goaudio.IntBuffer{
			Format:         format,
			Data:           make([]int, 4096),
			SourceBitDepth: int(dec.BitDepth),
		},
	}, nil
}

// scaleFor returns the divisor and zero offset for an integer sample width.
// 8-bit WAV is unsigned.
func scaleFor(bitDepth int) (float32, int, error) {
	switch bitDepth {
	case 8:
		return 128, 128, nil
	case 16:
		return 32768, 0, nil
	case 24:
		return 8388608, 0, nil
	case 32:
		return 2147483648, 0, nil
	}
	return 0, 0, errors.Wrapf(ErrUnsupportedDepth, "%d bits", bitDepth)
}
