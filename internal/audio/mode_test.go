// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"
)

func TestRenderMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode      RenderMode
		rate      float64
		semitones float64
		label     string
		next      RenderMode
	}{
		{Standard, 2.5, 15.863, "Days Render", Smooth},
		{Smooth, 2.0, 12, "Abiw Render", Standard},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if tt.mode.Rate() != tt.rate {
				t.Errorf("Rate = %v, want %v", tt.mode.Rate(), tt.rate)
			}
			if math.Abs(tt.mode.Semitones()-tt.semitones) > 1e-3 {
				t.Errorf("Semitones = %v, want %v", tt.mode.Semitones(), tt.semitones)
			}
			if tt.mode.Label() != tt.label {
				t.Errorf("Label = %q, want %q", tt.mode.Label(), tt.label)
			}
			if tt.mode.Next() != tt.next {
				t.Errorf("Next = %v, want %v", tt.mode.Next(), tt.next)
			}
			if tt.mode.PitchHint() == "" {
				t.Error("PitchHint should not be empty")
			}
		})
	}
}

func TestParseRenderMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    RenderMode
		wantErr bool
	}{
		{"standard", Standard, false},
		{" Smooth ", Smooth, false},
		{"2.5", Standard, false},
		{"2x", Smooth, false},
		{"abiw", Smooth, false},
		{"fast", Standard, true},
		{"", Standard, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRenderMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRenderMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
