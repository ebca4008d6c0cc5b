// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"strings"
)

// RenderMode selects the fixed playback-rate multiplier. Pitch and tempo
// rise together.
type RenderMode int

const (
	Standard RenderMode = iota
	Smooth
)

// Modes lists every mode in display order.
var Modes = []RenderMode{Standard, Smooth}

// Rate returns the playback-rate multiplier.
func (m RenderMode) Rate() float64 {
	if m == Smooth {
		return 2.0
	}
	return 2.5
}

// Semitones is the nominal pitch shift, 12*log2(rate).
func (m RenderMode) Semitones() float64 {
	return 12 * math.Log2(m.Rate())
}

func (m RenderMode) String() string {
	if m == Smooth {
		return "smooth"
	}
	return "standard"
}

// Label is the name shown on the mode selector.
func (m RenderMode) Label() string {
	if m == Smooth {
		return "Abiw Render"
	}
	return "Days Render"
}

// PitchHint is the companion pitch setting suggested next to each mode.
func (m RenderMode) PitchHint() string {
	if m == Smooth {
		return ";music ... pitch 0.49"
	}
	return ";music ... pitch 0.40"
}

// Next cycles to the following mode.
func (m RenderMode) Next() RenderMode {
	return Modes[(int(m)+1)%len(Modes)]
}

// ParseRenderMode accepts a mode name or its rate ("2.5", "2").
func ParseRenderMode(s string) (RenderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "days", "2.5", "2.5x":
		return Standard, nil
	case "smooth", "abiw", "2", "2.0", "2x", "2.0x":
		return Smooth, nil
	}
	return Standard, fmt.Errorf("unknown render mode %q (want standard or smooth)", s)
}
