// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"forestric/internal/analysis"
	"forestric/internal/pcm"
)

// Node renders into out, a set of equally long per-channel slices. Nodes
// pull from their upstream and then process the block in place.
type Node interface {
	Process(out [][]float32)
}

// BufferSource plays a window of a PcmBuffer at a fixed playback rate.
// Reading positions advance by rate source frames per output frame, so pitch
// and tempo scale together.
type BufferSource struct {
	buf   *pcm.Buffer
	rate  float64
	start float64      // first source frame
	end   float64      // exclusive last source frame
	k     atomic.Int64 // output frames produced, stored after each block

	ended     atomic.Bool
	endedCh   chan struct{}
	endedOnce sync.Once
}

// NewBufferSource plays duration seconds of buf starting at offset seconds.
func NewBufferSource(buf *pcm.Buffer, rate, offset, duration float64) (*BufferSource, error) {
	if buf == nil || buf.Frames == 0 {
		return nil, errors.New("buffer source needs audio")
	}
	if !(rate > 0) || math.IsInf(rate, 0) {
		return nil, errors.Errorf("playback rate must be positive, got %v", rate)
	}
	if offset < 0 || !(duration > 0) {
		return nil, errors.Errorf("invalid window offset=%v duration=%v", offset, duration)
	}
	sr := float64(buf.SampleRate)
	start := offset * sr
	if start >= float64(buf.Frames) {
		return nil, errors.Errorf("offset %.3fs is past the end of the buffer", offset)
	}
	end := math.Min((offset+duration)*sr, float64(buf.Frames))
	return &BufferSource{
		buf:     buf,
		rate:    rate,
		start:   start,
		end:     end,
		endedCh: make(chan struct{}),
	}, nil
}

func (s *BufferSource) Process(out [][]float32) {
	if len(out) == 0 {
		return
	}
	frames := len(out[0])
	srcCh := s.buf.NumChannels()
	k := s.k.Load()
	i := 0
	for ; i < frames; i++ {
		pos := s.start + float64(k)*s.rate
		if pos >= s.end {
			break
		}
		k++
		if len(out) == 1 && srcCh > 1 {
			var sum float32
			for _, ch := range s.buf.Channels {
				sum += pcm.SampleAt(ch, pos)
			}
			out[0][i] = sum / float32(srcCh)
			continue
		}
		for ch := range out {
			out[ch][i] = pcm.SampleAt(s.buf.Channels[min(ch, srcCh-1)], pos)
		}
	}
	s.k.Store(k)
	if i < frames {
		for ch := range out {
			clear(out[ch][i:])
		}
		s.markEnded()
	}
}

func (s *BufferSource) markEnded() {
	s.endedOnce.Do(func() {
		s.ended.Store(true)
		close(s.endedCh)
	})
}

// Ended reports whether the window has been fully played.
func (s *BufferSource) Ended() bool { return s.ended.Load() }

// Done is closed once the source has played its window.
func (s *BufferSource) Done() <-chan struct{} { return s.endedCh }

// Position returns the current read position in source seconds.
func (s *BufferSource) Position() float64 {
	pos := math.Min(s.start+float64(s.k.Load())*s.rate, s.end)
	return pos / float64(s.buf.SampleRate)
}

// OutputFrames returns how many frames the source produces before ending.
func (s *BufferSource) OutputFrames() int {
	return int(math.Ceil((s.end - s.start) / s.rate))
}

// GainNode scales its input by an automatable gain.
type GainNode struct {
	input Node
	gain  *Param
}

func NewGainNode(input Node, gain *Param) *GainNode {
	return &GainNode{input: input, gain: gain}
}

func (g *GainNode) Gain() *Param { return g.gain }

func (g *GainNode) Process(out [][]float32) {
	g.input.Process(out)
	if len(out) == 0 {
		return
	}
	g.gain.beginBlock()
	for i := range out[0] {
		v := float32(g.gain.next())
		for ch := range out {
			out[ch][i] *= v
		}
	}
}

// AnalyserNode passes audio through unchanged while feeding a mono mix to a
// sample sink and tracking the block peak.
type AnalyserNode struct {
	input Node
	sink  analysis.SampleSink
	mono  []float32
	peak  atomic.Uint32 // float32 bits of the last block peak
}

func NewAnalyserNode(input Node, sink analysis.SampleSink) *AnalyserNode {
	return &AnalyserNode{input: input, sink: sink, mono: make([]float32, RenderQuantum)}
}

func (a *AnalyserNode) Process(out [][]float32) {
	a.input.Process(out)
	if len(out) == 0 {
		return
	}
	frames := len(out[0])
	if cap(a.mono) < frames {
		a.mono = make([]float32, frames)
	}
	mono := a.mono[:frames]
	scale := 1 / float32(len(out))
	var peak float32
	for i := range mono {
		var sum float32
		for ch := range out {
			sum += out[ch][i]
		}
		v := sum * scale
		mono[i] = v
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	a.peak.Store(math.Float32bits(peak))
	a.sink.Write(mono)
}

// Peak returns the absolute peak of the most recent block.
func (a *AnalyserNode) Peak() float32 {
	return math.Float32frombits(a.peak.Load())
}
