// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100
	testFrequency  = 440.0 // A4 note
)

func TestGenerateSineWave(t *testing.T) {
	t.Parallel()

	wave := GenerateSineWave(testSize, testSampleRate, testFrequency)
	if len(wave) != testSize {
		t.Fatalf("len = %d, want %d", len(wave), testSize)
	}
	if wave[0] != 0 {
		t.Errorf("first sample = %v, want 0", wave[0])
	}
	var peak float64
	for _, s := range wave {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	if peak > 0.9+1e-6 || peak < 0.85 {
		t.Errorf("peak = %v, want about 0.9", peak)
	}
}

func TestGenerateComplexWave_Bounded(t *testing.T) {
	t.Parallel()

	for i, s := range GenerateComplexWave(testSize, testSampleRate) {
		if s > 1 || s < -1 {
			t.Fatalf("sample %d = %v out of range", i, s)
		}
	}
}

func TestGenerateRamp(t *testing.T) {
	t.Parallel()

	r := GenerateRamp(4)
	want := []float32{-1, -0.5, 0, 0.5}
	for i := range want {
		if r[i] != want[i] {
			t.Errorf("ramp[%d] = %v, want %v", i, r[i], want[i])
		}
	}
	if len(GenerateRamp(0)) != 0 {
		t.Error("empty ramp should be empty")
	}
}

func TestFindPeakBin(t *testing.T) {
	t.Parallel()

	mags := make([]float64, testSize)
	for i := range mags {
		// A "hill" peaking at testSize/4.
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	tests := []struct {
		name       string
		start, end int
		want       int
	}{
		{"full range", 0, testSize - 1, testSize / 4},
		{"clamped bounds", -5, testSize * 2, testSize / 4},
		{"right of peak", testSize / 2, testSize - 1, testSize / 2},
	}
	for _, tt := range tests {
		if got := FindPeakBin(mags, tt.start, tt.end); got != tt.want {
			t.Errorf("%s: FindPeakBin = %d, want %d", tt.name, got, tt.want)
		}
	}
	if FindPeakBin(nil, 0, 10) != 0 {
		t.Error("empty input should return 0")
	}
}

func TestMockTransport(t *testing.T) {
	t.Parallel()

	mt := &MockTransport{}
	if err := mt.Send("a"); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if err := mt.Send(2); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if got := mt.Sent(); len(got) != 2 || got[0] != "a" {
		t.Errorf("Sent() = %v", got)
	}
	_ = mt.Close()
	if !mt.Closed() {
		t.Error("Closed() = false after Close")
	}
	if err := mt.Send(3); err != ErrMockClosed {
		t.Errorf("Send after Close = %v, want ErrMockClosed", err)
	}
}
