// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	applog "forestric/internal/log"
	"forestric/pkg/bitint"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// Defaults match the analyser the live preview uses.
const (
	DefaultFFTSize     = 512
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

// Options configures an Analyser. Zero fields take the defaults above.
type Options struct {
	FFTSize     int
	SampleRate  float64
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
	Window      WindowFunc
}

// Pre-allocated buffers for FFT calculations.
type fftWorkspace struct {
	ring      []float64    // Most recent fftSize time-domain samples.
	pos       int          // Next write position in ring.
	input     []float64    // Windowed, time-ordered copy of ring.
	fftOutput []complex128 // FFT complex results.
	smoothed  []float64    // Exponentially smoothed magnitudes.
	window    []float64    // Pre-calculated window coefficients.
	mu        sync.Mutex   // Guards every field above.
}

// Analyser keeps a rolling window of the signal passing through a render
// graph and turns it into a smoothed magnitude spectrum on demand. Writes
// come from the render thread, reads from the display loop.
type Analyser struct {
	fftCalculator *fourier.FFT
	fftSize       int
	sampleRate    float64
	smoothing     float64
	minDecibels   float64
	maxDecibels   float64
	workspace     fftWorkspace
}

var _ SpectrumSource = (*Analyser)(nil)

// NewAnalyser validates opts and allocates the workspace.
func NewAnalyser(opts Options) (*Analyser, error) {
	if opts.FFTSize == 0 {
		opts.FFTSize = DefaultFFTSize
	}
	if opts.Smoothing == 0 {
		opts.Smoothing = DefaultSmoothing
	}
	if opts.MinDecibels == 0 && opts.MaxDecibels == 0 {
		opts.MinDecibels, opts.MaxDecibels = DefaultMinDecibels, DefaultMaxDecibels
	}

	if !bitint.IsPowerOfTwo(opts.FFTSize) || opts.FFTSize < 32 {
		return nil, fmt.Errorf("fft size must be a power of 2 and at least 32, got %d", opts.FFTSize)
	}
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", opts.SampleRate)
	}
	if opts.Smoothing < 0 || opts.Smoothing >= 1 {
		return nil, fmt.Errorf("smoothing must be in [0, 1), got %f", opts.Smoothing)
	}
	if opts.MinDecibels >= opts.MaxDecibels {
		return nil, fmt.Errorf("min decibels %.1f must be below max decibels %.1f", opts.MinDecibels, opts.MaxDecibels)
	}

	windowCoeffs := make([]float64, opts.FFTSize)
	applyWindow(windowCoeffs, opts.Window)
	bins := opts.FFTSize / 2

	applog.Debugf("Analysis: Initializing Analyser (Size: %d, SampleRate: %.1f Hz, Window: %v)", opts.FFTSize, opts.SampleRate, opts.Window)

	return &Analyser{
		fftCalculator: fourier.NewFFT(opts.FFTSize),
		fftSize:       opts.FFTSize,
		sampleRate:    opts.SampleRate,
		smoothing:     opts.Smoothing,
		minDecibels:   opts.MinDecibels,
		maxDecibels:   opts.MaxDecibels,
		workspace: fftWorkspace{
			ring:      make([]float64, opts.FFTSize),
			input:     make([]float64, opts.FFTSize),
			fftOutput: make([]complex128, opts.FFTSize/2+1),
			smoothed:  make([]float64, bins),
			window:    windowCoeffs,
		},
	}, nil
}

// Write appends mono samples to the rolling window. It does not allocate.
func (a *Analyser) Write(samples []float32) {
	ws := &a.workspace
	ws.mu.Lock()
	for _, s := range samples {
		ws.ring[ws.pos] = float64(s)
		ws.pos++
		if ws.pos == a.fftSize {
			ws.pos = 0
		}
	}
	ws.mu.Unlock()
}

// FrequencyBinCount returns half the FFT size.
func (a *Analyser) FrequencyBinCount() int { return a.fftSize / 2 }

// FloatFrequencyData fills dst with the smoothed spectrum in decibels.
// At most FrequencyBinCount values are written.
func (a *Analyser) FloatFrequencyData(dst []float64) {
	ws := &a.workspace
	ws.mu.Lock()
	defer ws.mu.Unlock()

	a.computeSpectrum()
	n := min(len(dst), len(ws.smoothed))
	for i := range n {
		dst[i] = toDecibels(ws.smoothed[i])
	}
}

// ByteFrequencyData fills dst with the smoothed spectrum mapped linearly from
// [minDecibels, maxDecibels] onto [0, 255]. At most FrequencyBinCount values
// are written.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	ws := &a.workspace
	ws.mu.Lock()
	defer ws.mu.Unlock()

	a.computeSpectrum()
	scale := 255 / (a.maxDecibels - a.minDecibels)
	n := min(len(dst), len(ws.smoothed))
	for i := range n {
		db := toDecibels(ws.smoothed[i])
		v := math.Floor(scale * (db - a.minDecibels))
		switch {
		case math.IsNaN(v) || v < 0:
			dst[i] = 0
		case v > 255:
			dst[i] = 255
		default:
			dst[i] = byte(v)
		}
	}
}

// computeSpectrum windows the rolling buffer oldest-first, runs the FFT and
// folds the normalised magnitudes into the smoothed spectrum. Callers hold
// the workspace lock.
func (a *Analyser) computeSpectrum() {
	ws := &a.workspace
	for i := range a.fftSize {
		ws.input[i] = ws.ring[(ws.pos+i)%a.fftSize] * ws.window[i]
	}
	a.fftCalculator.Coefficients(ws.fftOutput, ws.input)

	norm := 1 / float64(a.fftSize)
	for i := range ws.smoothed {
		mag := cmplx.Abs(ws.fftOutput[i]) * norm
		ws.smoothed[i] = a.smoothing*ws.smoothed[i] + (1-a.smoothing)*mag
	}
}

// Reset clears the signal history and the smoothing state.
func (a *Analyser) Reset() {
	ws := &a.workspace
	ws.mu.Lock()
	clear(ws.ring)
	clear(ws.smoothed)
	ws.pos = 0
	ws.mu.Unlock()
}

// FrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
func (a *Analyser) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= a.FrequencyBinCount() {
		return 0.0
	}
	return float64(binIndex) * (a.sampleRate / float64(a.fftSize))
}

// FFTSize returns the configured FFT size (number of points).
func (a *Analyser) FFTSize() int { return a.fftSize }

// SampleRate returns the configured sample rate (Hz).
func (a *Analyser) SampleRate() float64 { return a.sampleRate }

func toDecibels(mag float64) float64 {
	if mag <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(mag)
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Blackman) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman", "":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Blackman, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

func (w WindowFunc) String() string {
	switch w {
	case BartlettHann:
		return "BartlettHann"
	case Blackman:
		return "Blackman"
	case BlackmanNuttall:
		return "BlackmanNuttall"
	case Hann:
		return "Hann"
	case Hamming:
		return "Hamming"
	case Lanczos:
		return "Lanczos"
	case Nuttall:
		return "Nuttall"
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// applyWindow fills coeffs with the selected window. Unknown types fall back
// to Blackman.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// gonum multiplies in place, so start from a rectangular window.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		applog.Warnf("Analysis: Unknown window function type %d, defaulting to Blackman", windowType)
		window.Blackman(coeffs)
	}
}
