// SPDX-License-Identifier: MIT
package audio

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"forestric/internal/analysis"
	"forestric/internal/crop"
	"forestric/internal/pcm"
)

// GraphOptions describes one render of a crop window.
type GraphOptions struct {
	Range    crop.Range
	Rate     float64
	Volume   float64
	Channels int                 // output channels; 0 uses the source count
	Sink     analysis.SampleSink // optional analyser tap after the gain
}

// Graph is the fixed chain BufferSource -> Gain -> [Analyser] -> output.
// The same graph is driven by the real-time clock for previews and by the
// offline clock for exports, so both hear identical processing.
type Graph struct {
	source   *BufferSource
	gain     *GainNode
	analyser *AnalyserNode
	head     Node

	sampleRate int
	channels   int
	sub        [][]float32
	rendered   atomic.Int64
}

// NewGraph wires the chain for buf.
func NewGraph(buf *pcm.Buffer, opts GraphOptions) (*Graph, error) {
	if buf == nil {
		return nil, errors.New("graph needs a buffer")
	}
	src, err := NewBufferSource(buf, opts.Rate, opts.Range.Start, opts.Range.Span())
	if err != nil {
		return nil, err
	}
	channels := opts.Channels
	if channels <= 0 {
		channels = buf.NumChannels()
	}

	g := &Graph{
		source:     src,
		gain:       NewGainNode(src, NewParam(opts.Volume, buf.SampleRate)),
		sampleRate: buf.SampleRate,
		channels:   channels,
		sub:        make([][]float32, channels),
	}
	g.head = g.gain
	if opts.Sink != nil {
		g.analyser = NewAnalyserNode(g.gain, opts.Sink)
		g.head = g.analyser
	}
	return g, nil
}

// Render fills out in RenderQuantum-sized steps. len(out) must equal
// Channels(). It does not allocate.
func (g *Graph) Render(out [][]float32) {
	if len(out) == 0 {
		return
	}
	n := len(out[0])
	for off := 0; off < n; off += RenderQuantum {
		end := min(off+RenderQuantum, n)
		for ch := range g.sub {
			g.sub[ch] = out[ch][off:end]
		}
		g.head.Process(g.sub)
	}
	g.rendered.Add(int64(n))
}

// Channels returns the output channel count.
func (g *Graph) Channels() int { return g.channels }

// SampleRate returns the output sample rate, equal to the source's.
func (g *Graph) SampleRate() int { return g.sampleRate }

// Gain exposes the volume parameter.
func (g *Graph) Gain() *Param { return g.gain.Gain() }

// Source exposes the buffer source.
func (g *Graph) Source() *BufferSource { return g.source }

// Done is closed when the source has finished its window.
func (g *Graph) Done() <-chan struct{} { return g.source.Done() }

// CurrentTime is the amount of output rendered so far, in seconds.
func (g *Graph) CurrentTime() float64 {
	return float64(g.rendered.Load()) / float64(g.sampleRate)
}

// Peak returns the last block peak seen by the analyser tap, or 0 without one.
func (g *Graph) Peak() float32 {
	if g.analyser == nil {
		return 0
	}
	return g.analyser.Peak()
}
