// SPDX-License-Identifier: MIT
package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"

	"forestric/internal/formats"
	"forestric/internal/formats/aiff"
	"forestric/internal/formats/mp3"
	"forestric/internal/formats/vorbis"
	"forestric/internal/formats/wav"
	applog "forestric/internal/log"
)

// RenderQuantum is the number of frames a graph renders per step.
const RenderQuantum = 128

// Context is the process-wide audio processing context. It owns the decoder
// registry and the PortAudio host, which is only brought up when a real-time
// stream is first opened.
type Context struct {
	registry *formats.Registry

	hostMu      sync.Mutex
	hostStarted bool

	// Swappable for tests that must not touch the audio hardware.
	hostInit      func() error
	hostTerminate func() error
}

var (
	defaultContext *Context
	contextOnce    sync.Once
)

// AcquireContext returns the shared context, creating it on first use.
func AcquireContext() *Context {
	contextOnce.Do(func() {
		defaultContext = newContext()
		applog.Debugf("Audio: context created")
	})
	return defaultContext
}

func newContext() *Context {
	reg := formats.NewRegistry()
	reg.Register(formats.WAV, wav.Decoder{})
	reg.Register(formats.AIFF, aiff.Decoder{})
	reg.Register(formats.MP3, mp3.Decoder{})
	reg.Register(formats.Vorbis, vorbis.Decoder{})
	return &Context{
		registry:      reg,
		hostInit:      portaudio.Initialize,
		hostTerminate: portaudio.Terminate,
	}
}

// Registry exposes the decoder registry so callers can add formats.
func (c *Context) Registry() *formats.Registry { return c.registry }

// EnsureHost initialises PortAudio once. Later calls are no-ops.
func (c *Context) EnsureHost() error {
	c.hostMu.Lock()
	defer c.hostMu.Unlock()
	if c.hostStarted {
		return nil
	}
	if err := c.hostInit(); err != nil {
		return errors.Wrap(err, "failed to initialize PortAudio")
	}
	c.hostStarted = true
	applog.Debugf("Audio: PortAudio host initialised")
	return nil
}

// HostStarted reports whether EnsureHost has succeeded.
func (c *Context) HostStarted() bool {
	c.hostMu.Lock()
	defer c.hostMu.Unlock()
	return c.hostStarted
}

// Close terminates the PortAudio host if it was started.
func (c *Context) Close() error {
	c.hostMu.Lock()
	defer c.hostMu.Unlock()
	if !c.hostStarted {
		return nil
	}
	c.hostStarted = false
	if err := c.hostTerminate(); err != nil {
		return errors.Wrap(err, "failed to terminate PortAudio")
	}
	return nil
}
