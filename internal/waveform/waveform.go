// SPDX-License-Identifier: MIT

// Package waveform lays out the static min/max waveform, the crop selection
// and the live spectrum curve in pixel space, and rasterizes them.
//
// Layout is a pure function of its inputs and is recomputed on every change;
// nothing here caches state between calls.
package waveform

import (
	"math"

	"github.com/pkg/errors"

	"forestric/internal/crop"
	"forestric/internal/pcm"
)

// MarkerWidth is the width in pixels of the two boundary markers.
const MarkerWidth = 4

var (
	ErrNoBuffer = errors.New("waveform needs a decoded buffer")
	ErrNoCanvas = errors.New("waveform needs a positive width and height")
)

// Bar is one column of the waveform: a 1 px wide rectangle from Y to Y+H.
type Bar struct {
	X    int
	Y, H float64
}

// Span is a full-height horizontal extent [X0, X1).
type Span struct {
	X0, X1 float64
}

// Width returns X1-X0.
func (s Span) Width() float64 { return s.X1 - s.X0 }

// Frame is the static layer drawn under the spectrum.
type Frame struct {
	Width, Height int
	Bars          []Bar
	Selection     Span
	Markers       [2]Span // start, end
}

// Render computes the waveform of channel 0 of buf and the overlay for rng.
// Each column covers ceil(frames/width) samples. Columns past the end of the
// data are drawn as silence.
func Render(buf *pcm.Buffer, rng crop.Range, width, height int) (Frame, error) {
	if buf == nil || buf.Frames == 0 || buf.NumChannels() == 0 {
		return Frame{}, ErrNoBuffer
	}
	if width <= 0 || height <= 0 {
		return Frame{}, ErrNoCanvas
	}

	data := buf.Channels[0]
	step := (len(data) + width - 1) / width
	amp := float64(height) / 2

	bars := make([]Bar, width)
	for i := range bars {
		lo, hi := columnRange(data, i*step, step)
		bars[i] = Bar{
			X: i,
			Y: (1 + lo) * amp,
			H: math.Max(1, (hi-lo)*amp),
		}
	}

	f := Frame{Width: width, Height: height, Bars: bars}
	f.Select(rng, buf.Duration())
	return f, nil
}

// Select places the selection and markers for rng on a track of the given
// duration, leaving the bars alone.
func (f *Frame) Select(rng crop.Range, duration float64) {
	if !(duration > 0) {
		f.Selection, f.Markers = Span{}, [2]Span{}
		return
	}
	startX := rng.Start / duration * float64(f.Width)
	endX := rng.End / duration * float64(f.Width)
	half := float64(MarkerWidth) / 2

	f.Selection = Span{X0: startX, X1: endX}
	f.Markers = [2]Span{
		{X0: startX - half, X1: startX + half},
		{X0: endX - half, X1: endX + half},
	}
}

// columnRange returns the min and max of data[off:off+n], or 0, 0 when the
// column holds no samples.
func columnRange(data []float32, off, n int) (lo, hi float64) {
	if off >= len(data) {
		return 0, 0
	}
	end := min(off+n, len(data))
	mn, mx := float32(1), float32(-1)
	for _, v := range data[off:end] {
		mn = min(mn, v)
		mx = max(mx, v)
	}
	if mn > mx {
		return 0, 0
	}
	return float64(mn), float64(mx)
}

// FractionAt maps a pointer column to a 0..1 position across the canvas.
func FractionAt(x, width float64) float64 {
	if !(width > 0) {
		return 0
	}
	f := x / width
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
