// SPDX-License-Identifier: MIT

// Package input routes pointer events to widgets with capture semantics:
// the widget that accepts a press receives every move and the release of
// that pointer, wherever they land, until the release.
package input

import "sync"

// Phase of a pointer event.
type Phase int

const (
	Press Phase = iota
	Move
	Release
)

func (p Phase) String() string {
	switch p {
	case Press:
		return "press"
	case Move:
		return "move"
	case Release:
		return "release"
	}
	return "unknown"
}

// Event is a pointer event in surface coordinates.
type Event struct {
	Phase   Phase
	Pointer int
	X, Y    float64
}

// Region is the rectangle [X0, X1) x [Y0, Y1) a widget occupies.
type Region struct {
	X0, Y0, X1, Y1 float64
}

// Contains reports whether (x, y) falls inside the region.
func (r Region) Contains(x, y float64) bool {
	return x >= r.X0 && x < r.X1 && y >= r.Y0 && y < r.Y1
}

// Width of the region.
func (r Region) Width() float64 { return r.X1 - r.X0 }

// Handler receives events for a widget. Press returns whether the widget
// takes the pointer; only then do Move and Release follow.
type Handler interface {
	Press(ev Event, r Region) bool
	Move(ev Event, r Region)
	Release(ev Event, r Region)
}

type widget struct {
	region  Region
	handler Handler
}

// Surface dispatches events to the topmost widget under a press and keeps
// the pointer captured by it until release.
type Surface struct {
	mu       sync.Mutex
	widgets  []widget
	captured *widget
	pointer  int
}

// Add places a widget above those added before it.
func (s *Surface) Add(r Region, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.widgets = append(s.widgets, widget{region: r, handler: h})
}

// Resize moves the widget served by h. Captures survive a resize.
func (s *Surface) Resize(h Handler, r Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.widgets {
		if s.widgets[i].handler == h {
			s.widgets[i].region = r
			if s.captured != nil && s.captured.handler == h {
				s.captured.region = r
			}
		}
	}
}

// Captured reports whether a pointer is currently held by a widget.
func (s *Surface) Captured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured != nil
}

// Dispatch routes ev and reports whether a widget handled it. Handlers run
// without the surface lock held.
func (s *Surface) Dispatch(ev Event) bool {
	s.mu.Lock()
	switch ev.Phase {
	case Press:
		if s.captured != nil {
			s.mu.Unlock()
			return false
		}
		for i := len(s.widgets) - 1; i >= 0; i-- {
			w := s.widgets[i]
			if !w.region.Contains(ev.X, ev.Y) {
				continue
			}
			s.mu.Unlock()
			if !w.handler.Press(ev, w.region) {
				return false
			}
			s.mu.Lock()
			s.captured = &w
			s.pointer = ev.Pointer
			s.mu.Unlock()
			return true
		}
		s.mu.Unlock()
		return false

	case Move:
		w := s.captured
		ok := w != nil && ev.Pointer == s.pointer
		s.mu.Unlock()
		if ok {
			w.handler.Move(ev, w.region)
		}
		return ok

	case Release:
		w := s.captured
		ok := w != nil && ev.Pointer == s.pointer
		if ok {
			s.captured = nil
		}
		s.mu.Unlock()
		if ok {
			w.handler.Release(ev, w.region)
		}
		return ok
	}
	s.mu.Unlock()
	return false
}

// Cancel drops any capture without notifying the widget.
func (s *Surface) Cancel() {
	s.mu.Lock()
	s.captured = nil
	s.mu.Unlock()
}
