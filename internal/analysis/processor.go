// SPDX-License-Identifier: MIT

// Package analysis turns the signal flowing through a render graph into the
// byte spectrum drawn over the waveform and published to transports.
package analysis

// SpectrumSource is read by the display loop once per frame.
type SpectrumSource interface {
	// FrequencyBinCount is the number of values ByteFrequencyData produces.
	FrequencyBinCount() int
	// ByteFrequencyData writes the current spectrum into dst.
	ByteFrequencyData(dst []byte)
	// FrequencyForBin returns the centre frequency of a bin in Hz.
	FrequencyForBin(binIndex int) float64
}

// SampleSink receives mono samples from the render thread. Implementations
// must not block or allocate.
type SampleSink interface {
	Write(samples []float32)
}
