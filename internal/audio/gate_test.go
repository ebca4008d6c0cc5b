// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"testing"
)

func TestGateEnableDisable(t *testing.T) {
	g := NewGate(0)
	if !g.Open(0) {
		t.Error("a zero threshold gate should start disabled and open")
	}

	g.SetThreshold(0.5)
	g.Enable()
	g.Enable() // Multiple calls should be idempotent
	if g.Open(0.25) {
		t.Error("enabled gate should hold back a quiet frame")
	}
	if !g.Open(0.75) {
		t.Error("enabled gate should pass a loud frame")
	}

	g.Disable()
	g.Disable()
	if !g.Open(0.25) {
		t.Error("disabled gate should pass every frame")
	}

	var nilGate *Gate
	if !nilGate.Open(0) {
		t.Error("nil gate should be open")
	}
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0}, // Below min
		{0.0, 0.0},  // Minimum
		{0.5, 0.5},  // Middle
		{1.0, 1.0},  // Maximum
		{1.5, 1.0},  // Above max
		{math.NaN(), 0.0},
	}

	g := NewGate(0.1)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.input), func(t *testing.T) {
			g.SetThreshold(tt.input)
			if got := g.Threshold(); math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("SetThreshold(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGateOpenNoAllocs(t *testing.T) {
	g := NewGate(0.3)
	allocs := testing.AllocsPerRun(100, func() {
		_ = g.Open(0.5)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Gate.Open, got %.1f", allocs)
	}
}
