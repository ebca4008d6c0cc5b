// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// Gate decides whether a spectrum frame is worth publishing to transports.
// Frames whose block peak stays under the threshold are held back so idle
// stretches of a preview do not flood the network. The threshold is a
// linear amplitude in [0, 1]; 0 keeps the gate always open.
type Gate struct {
	enabled   atomic.Bool
	threshold atomic.Uint32 // float32 bits
}

func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	g.enabled.Store(threshold > 0)
	return g
}

func (g *Gate) Enable()  { g.enabled.Store(true) }
func (g *Gate) Disable() { g.enabled.Store(false) }

// SetThreshold clamps and stores the threshold.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0.0 || math.IsNaN(threshold) {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold.Store(math.Float32bits(float32(threshold)))
}

// Threshold returns the current threshold.
func (g *Gate) Threshold() float64 {
	return float64(math.Float32frombits(g.threshold.Load()))
}

// Open reports whether a block with the given peak passes.
func (g *Gate) Open(peak float32) bool {
	if g == nil || !g.enabled.Load() {
		return true
	}
	return peak > math.Float32frombits(g.threshold.Load())
}
