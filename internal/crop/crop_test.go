// SPDX-License-Identifier: MIT
package crop

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
)

func mustModel(t *testing.T, d float64) *Model {
	t.Helper()
	m, err := New(d)
	if err != nil {
		t.Fatalf("New(%v): %v", d, err)
	}
	return m
}

func TestNew(t *testing.T) {
	t.Parallel()

	m := mustModel(t, 12.5)
	if r := m.Range(); r.Start != 0 || r.End != 12.5 {
		t.Errorf("initial range = %+v, want {0 12.5}", r)
	}
	for _, d := range []float64{0, 0.05, -1, math.NaN(), math.Inf(1)} {
		if _, err := New(d); !errors.Is(err, ErrTooShort) {
			t.Errorf("New(%v) error = %v, want ErrTooShort", d, err)
		}
	}
}

func TestSetStartEnd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		apply     func(m *Model)
		wantStart float64
		wantEnd   float64
	}{
		{"start inside", func(m *Model) { m.SetStart(3) }, 3, 10},
		{"start negative", func(m *Model) { m.SetStart(-4) }, 0, 10},
		{"start past end", func(m *Model) { m.SetStart(20) }, 9.9, 10},
		{"end inside", func(m *Model) { m.SetEnd(4) }, 0, 4},
		{"end past duration", func(m *Model) { m.SetEnd(99) }, 0, 10},
		{"end before start", func(m *Model) { m.SetStart(5); m.SetEnd(1) }, 5, 5.1},
		{"nan start", func(m *Model) { m.SetStart(2); m.SetStart(math.NaN()) }, 0, 10},
		{"range swap", func(m *Model) { m.SetRange(8, 2) }, 8, 8.1},
		{"range moved past old end", func(m *Model) { m.SetEnd(2); m.SetRange(6, 9) }, 6, 9},
		{"range clamps start", func(m *Model) { m.SetRange(10, 10) }, 9.9, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := mustModel(t, 10)
			tt.apply(m)
			r := m.Range()
			if math.Abs(r.Start-tt.wantStart) > 1e-9 || math.Abs(r.End-tt.wantEnd) > 1e-9 {
				t.Errorf("range = %+v, want {%v %v}", r, tt.wantStart, tt.wantEnd)
			}
			if err := m.Validate(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestInvariantUnderRandomSequences(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	for run := range 200 {
		d := MinGap + rng.Float64()*600
		m := mustModel(t, d)
		for step := range 100 {
			x := (rng.Float64()*1.6 - 0.3) * d
			switch rng.IntN(5) {
			case 0:
				m.SetStart(x)
			case 1:
				m.SetEnd(x)
			case 2:
				m.SetFromPointer(rng.Float64()*1.4-0.2, Edge(rng.IntN(2)))
			case 3:
				m.SetRange(x, (rng.Float64()*1.6-0.3)*d)
			case 4:
				m.SetFromPointer(rng.Float64(), m.PickNearestEdge(x))
			}
			if err := m.Validate(); err != nil {
				t.Fatalf("run %d step %d (duration %v): %v", run, step, d, err)
			}
		}
	}
}

func TestPickNearestEdge(t *testing.T) {
	t.Parallel()

	m := mustModel(t, 10)
	m.SetRange(2, 6)
	tests := []struct {
		at   float64
		want Edge
	}{
		{0, Start},
		{3.9, Start},
		{4, End}, // equidistant
		{4.1, End},
		{9, End},
	}
	for _, tt := range tests {
		if got := m.PickNearestEdge(tt.at); got != tt.want {
			t.Errorf("PickNearestEdge(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestSetFromPointer(t *testing.T) {
	t.Parallel()

	m := mustModel(t, 20)
	m.SetFromPointer(0.25, Start)
	if m.Start() != 5 {
		t.Errorf("start = %v, want 5", m.Start())
	}
	m.SetFromPointer(1.7, End)
	if m.End() != 20 {
		t.Errorf("end = %v, want 20 for pointer past the right edge", m.End())
	}
	m.SetFromPointer(-0.5, Start)
	if m.Start() != 0 {
		t.Errorf("start = %v, want 0 for pointer past the left edge", m.Start())
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	m := mustModel(t, 3)
	m.SetRange(1, 2)
	m.Reset()
	if r := m.Range(); r.Start != 0 || r.End != 3 {
		t.Errorf("after Reset range = %+v", r)
	}
}
