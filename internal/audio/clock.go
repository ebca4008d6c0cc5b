// SPDX-License-Identifier: MIT
package audio

import (
	"context"

	"github.com/pkg/errors"

	applog "forestric/internal/log"
	"forestric/internal/pcm"
)

// Clock drives a graph's render loop until the source ends or ctx is done.
type Clock interface {
	Run(ctx context.Context, g *Graph) error
}

// offlineCheckEvery is how many frames are rendered between context checks.
const offlineCheckEvery = RenderQuantum * 64

// OfflineClock renders as fast as possible into Dst. Dst decides the output
// length and must have the graph's channel count.
type OfflineClock struct {
	Dst *pcm.Buffer
}

func (c *OfflineClock) Run(ctx context.Context, g *Graph) error {
	if c.Dst == nil || c.Dst.NumChannels() != g.Channels() {
		return errors.New("offline destination does not match graph channels")
	}
	view := make([][]float32, g.Channels())
	for off := 0; off < c.Dst.Frames; off += offlineCheckEvery {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(off+offlineCheckEvery, c.Dst.Frames)
		for ch := range view {
			view[ch] = c.Dst.Channels[ch][off:end]
		}
		g.Render(view)
	}
	return nil
}

// RealtimeClock drives a graph from an output device callback.
type RealtimeClock struct {
	Output OutputFactory
	Config OutputConfig

	stream OutputStream
}

// Open creates and starts the output stream. The device starts pulling
// audio immediately.
func (c *RealtimeClock) Open(g *Graph) error {
	cfg := c.Config
	cfg.Channels = g.Channels()
	cfg.SampleRate = g.SampleRate()

	stream, err := c.Output(cfg, g.Render)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return errors.Wrap(err, "failed to start output stream")
	}
	c.stream = stream
	return nil
}

// Wait blocks until the source ends or ctx is cancelled, then closes the
// stream. A natural end lets queued buffers play out; a cancel aborts them so
// the sound stops at once.
func (c *RealtimeClock) Wait(ctx context.Context, g *Graph) error {
	select {
	case <-ctx.Done():
		return c.close(true)
	case <-g.Done():
		return c.close(false)
	}
}

func (c *RealtimeClock) close(abort bool) error {
	if c.stream == nil {
		return nil
	}
	stream := c.stream
	c.stream = nil
	var stopErr error
	if abort {
		stopErr = stream.Abort()
	} else {
		stopErr = stream.Stop()
	}
	closeErr := stream.Close()
	if stopErr != nil {
		applog.Warnf("Audio: stopping output stream: %v", stopErr)
		return stopErr
	}
	return closeErr
}

// Run is Open followed by Wait.
func (c *RealtimeClock) Run(ctx context.Context, g *Graph) error {
	if err := c.Open(g); err != nil {
		return err
	}
	return c.Wait(ctx, g)
}

var (
	_ Clock = (*OfflineClock)(nil)
	_ Clock = (*RealtimeClock)(nil)
)
