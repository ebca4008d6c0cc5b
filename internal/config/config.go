// SPDX-License-Identifier: MIT

// Package config loads the application configuration. Only the command
// layer reads it; library packages take explicit options.
package config

import "time"

// Defaults and limits.
const (
	DefaultLogLevel        = "info"
	DefaultMode            = "standard"
	DefaultVolume          = 1.0
	DefaultOutputDevice    = MinDeviceID // system default
	DefaultFramesPerBuffer = 512
	DefaultFrameInterval   = 16 * time.Millisecond
	DefaultFFTSize         = 512
	DefaultSmoothing       = 0.8
	DefaultFFTWindow       = "Blackman"
	DefaultCanvasWidth     = 1200
	DefaultCanvasHeight    = 200
	DefaultExportDir       = "."
	DefaultWebSocketAddr   = "127.0.0.1:8787"
	DefaultUDPTarget       = "127.0.0.1:9090"

	MinDeviceID     = -1 // -1 represents the system default device
	MaxBufferFrames = 8192
	MaxVolume       = 2.0
	MaxCanvasSide   = 16384
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Studio: StudioConfig{
			Mode:   DefaultMode,
			Volume: DefaultVolume,
		},
		Playback: PlaybackConfig{
			OutputDevice:    DefaultOutputDevice,
			FramesPerBuffer: DefaultFramesPerBuffer,
			FrameInterval:   DefaultFrameInterval,
		},
		Analysis: AnalysisConfig{
			FFTSize:   DefaultFFTSize,
			Smoothing: DefaultSmoothing,
			FFTWindow: DefaultFFTWindow,
		},
		Canvas: CanvasConfig{
			Width:  DefaultCanvasWidth,
			Height: DefaultCanvasHeight,
		},
		Export: ExportConfig{
			OutputDir: DefaultExportDir,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddr,
			UDPTargetAddress: DefaultUDPTarget,
		},
	}
}
