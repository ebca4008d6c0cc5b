// SPDX-License-Identifier: MIT

// Package crop maintains the selected [start, end] window of a loaded track.
//
// Every mutation leaves the model satisfying
//
//	0 <= start, start + MinGap <= end <= duration
//
// so downstream renderers never see an empty or inverted selection.
package crop

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// MinGap is the smallest selectable span in seconds.
const MinGap = 0.1

// tolerance absorbs the rounding of (end-MinGap)+MinGap.
const tolerance = 1e-9

var ErrTooShort = errors.New("crop: audio is shorter than the minimum selection")

// Edge names one boundary of the selection.
type Edge int

const (
	Start Edge = iota
	End
)

func (e Edge) String() string {
	if e == Start {
		return "start"
	}
	return "end"
}

// Range is a selection in seconds.
type Range struct {
	Start float64
	End   float64
}

// Span returns End - Start.
func (r Range) Span() float64 { return r.End - r.Start }

// Model is the crop selection over a track of fixed duration. It is not safe
// for concurrent use; the owner serialises access.
type Model struct {
	duration float64
	r        Range
}

// New returns a model selecting the whole track.
func New(duration float64) (*Model, error) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < MinGap {
		return nil, errors.Wrapf(ErrTooShort, "duration %.3fs", duration)
	}
	return &Model{duration: duration, r: Range{Start: 0, End: duration}}, nil
}

func (m *Model) Duration() float64 { return m.duration }
func (m *Model) Range() Range      { return m.r }
func (m *Model) Start() float64    { return m.r.Start }
func (m *Model) End() float64      { return m.r.End }

// SetStart moves the start edge, keeping it at least MinGap before the end.
func (m *Model) SetStart(t float64) {
	t = finite(t)
	m.r.Start = math.Max(0, math.Min(t, m.r.End-MinGap))
	m.enforce()
}

// SetEnd moves the end edge, keeping it at least MinGap after the start.
func (m *Model) SetEnd(t float64) {
	t = finite(t)
	m.r.End = math.Min(m.duration, math.Max(t, m.r.Start+MinGap))
	m.enforce()
}

// SetRange replaces both edges in one step. Start is placed first so that a
// range moved wholesale past the old end is not clamped against it.
func (m *Model) SetRange(start, end float64) {
	start, end = finite(start), finite(end)
	m.r.Start = math.Max(0, math.Min(start, m.duration-MinGap))
	m.r.End = math.Min(m.duration, math.Max(end, m.r.Start+MinGap))
	m.enforce()
}

// Reset selects the whole track again.
func (m *Model) Reset() {
	m.r = Range{Start: 0, End: m.duration}
}

// SetFromPointer maps a horizontal fraction of the waveform to a time and
// applies it to the given edge. Fractions outside [0, 1] are clamped.
func (m *Model) SetFromPointer(fraction float64, edge Edge) {
	t := clampUnit(fraction) * m.duration
	if edge == Start {
		m.SetStart(t)
		return
	}
	m.SetEnd(t)
}

// PickNearestEdge returns the edge closest to t. Ties go to End.
func (m *Model) PickNearestEdge(t float64) Edge {
	if math.Abs(t-m.r.Start) < math.Abs(t-m.r.End) {
		return Start
	}
	return End
}

// Fractions returns both edges as fractions of the duration.
func (m *Model) Fractions() (start, end float64) {
	return m.r.Start / m.duration, m.r.End / m.duration
}

// Validate reports whether the model satisfies its invariant.
func (m *Model) Validate() error {
	r := m.r
	switch {
	case r.Start < 0:
		return fmt.Errorf("crop: start %.6f is negative", r.Start)
	case r.Start+MinGap > r.End+tolerance:
		return fmt.Errorf("crop: span %.6f is below the minimum %.1f", r.Span(), MinGap)
	case r.End > m.duration:
		return fmt.Errorf("crop: end %.6f exceeds duration %.6f", r.End, m.duration)
	}
	return nil
}

// enforce clamps the range back into the valid domain should arithmetic
// ever push it out.
func (m *Model) enforce() {
	if m.Validate() == nil {
		return
	}
	m.r.End = math.Min(m.duration, math.Max(m.r.End, MinGap))
	m.r.Start = math.Max(0, math.Min(m.r.Start, m.r.End-MinGap))
}

func finite(t float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	return t
}

func clampUnit(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
