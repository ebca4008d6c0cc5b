// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"math"
	"time"

	"forestric/internal/crop"
	applog "forestric/internal/log"
	"forestric/internal/pcm"
)

// OutputFrameCount is the length of a rendered crop: the span shrinks by the
// playback rate and is truncated to whole frames.
func OutputFrameCount(span, rate float64, sampleRate int) int {
	if !(rate > 0) || !(span > 0) || sampleRate <= 0 {
		return 0
	}
	n := math.Floor(span / rate * float64(sampleRate))
	if math.IsInf(n, 0) || n > math.MaxInt32 {
		return 0
	}
	return int(n)
}

// RenderOffline renders rng of buf at rate and volume into a new buffer with
// the source's channel count and sample rate, as fast as the CPU allows.
func RenderOffline(ctx context.Context, buf *pcm.Buffer, rng crop.Range, rate, volume float64) (*pcm.Buffer, error) {
	if buf == nil {
		return nil, &RenderError{Reason: "no audio loaded"}
	}
	if !(rate > 0) || math.IsInf(rate, 0) {
		return nil, &RenderError{Reason: "invalid playback rate"}
	}
	if math.IsNaN(volume) || math.IsInf(volume, 0) {
		return nil, &RenderError{Reason: "invalid volume"}
	}
	frames := OutputFrameCount(rng.Span(), rate, buf.SampleRate)
	if frames <= 0 {
		return nil, &RenderError{Reason: "selection renders to zero frames"}
	}

	graph, err := NewGraph(buf, GraphOptions{
		Range:    rng,
		Rate:     rate,
		Volume:   volume,
		Channels: buf.NumChannels(),
	})
	if err != nil {
		return nil, &RenderError{Reason: "building render graph", Err: err}
	}
	dst, err := pcm.New(buf.NumChannels(), frames, buf.SampleRate)
	if err != nil {
		return nil, &RenderError{Reason: "allocating output", Err: err}
	}

	began := time.Now()
	clock := &OfflineClock{Dst: dst}
	if err := clock.Run(ctx, graph); err != nil {
		return nil, &RenderError{Reason: "render interrupted", Err: err}
	}
	applog.Debugf("Audio: rendered %d frames (%.2fs) in %s", frames, dst.Duration(), time.Since(began))
	return dst, nil
}
