// SPDX-License-Identifier: MIT
package audio

import (
	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"

	applog "forestric/internal/log"
	"forestric/pkg/bitint"
)

// OutputConfig describes the stream a real-time clock asks for.
type OutputConfig struct {
	DeviceID        int
	Channels        int
	SampleRate      int
	FramesPerBuffer int
	LowLatency      bool
}

// OutputStream is an open device stream. Stop lets queued buffers play out;
// Abort discards them.
type OutputStream interface {
	Start() error
	Stop() error
	Abort() error
	Close() error
}

// OutputFactory opens a stream that calls render from the device thread
// whenever it needs cfg.FramesPerBuffer frames.
type OutputFactory func(cfg OutputConfig, render func(out [][]float32)) (OutputStream, error)

// PortAudioOutput opens streams on the host through the shared context.
func PortAudioOutput(c *Context) OutputFactory {
	return func(cfg OutputConfig, render func(out [][]float32)) (OutputStream, error) {
		device, err := c.outputDevice(cfg.DeviceID)
		if err != nil {
			return nil, err
		}

		latency := device.DefaultHighOutputLatency
		if cfg.LowLatency {
			latency = device.DefaultLowOutputLatency
		}
		frames := bitint.NextPowerOfTwo(cfg.FramesPerBuffer)

		params := portaudio.StreamParameters{
			Input: portaudio.StreamDeviceParameters{
				Channels: 0, // No input device
				Device:   nil,
			},
			Output: portaudio.StreamDeviceParameters{
				Channels: cfg.Channels,
				Device:   device,
				Latency:  latency,
			},
			FramesPerBuffer: frames,
			SampleRate:      float64(cfg.SampleRate),
		}

		stream, err := portaudio.OpenStream(params, render)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open output on %q at %d Hz", device.Name, cfg.SampleRate)
		}
		applog.Debugf("Audio: opened output %q (%d ch, %d Hz, %d frames, latency %s)",
			device.Name, cfg.Channels, cfg.SampleRate, frames, latency)
		return stream, nil
	}
}
