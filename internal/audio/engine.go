// SPDX-License-Identifier: MIT

/*
Package audio decodes tracks, builds the render graph shared by preview and
export, and drives it either from an output device (PlaybackEngine) or as
fast as possible into memory (RenderOffline).

Thread Safety:
  - The device callback only touches the graph, which does not allocate or lock
    except for the analyser ring buffer.
  - Gain changes cross threads through an atomic pointer.
  - Engine state transitions are serialised by a mutex and never wait on the
    device thread while holding it.
*/
package audio

import (
	"context"
	"math"
	"sync"
	"time"

	"forestric/internal/analysis"
	"forestric/internal/crop"
	applog "forestric/internal/log"
	"forestric/internal/pcm"
	"forestric/internal/transport"
)

// State is the playback state.
type State int

const (
	Idle State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "idle"
}

// VolumeTau is the time constant used for gain changes during playback.
const VolumeTau = 0.01

// Engine previews a crop window through the output device. It owns at most
// one playback session at a time.
type Engine struct {
	mu     sync.Mutex
	state  State
	sess   *session
	volume float64

	output        OutputFactory
	outputConfig  OutputConfig
	analyserOpts  analysis.Options
	frameInterval time.Duration
	transport     transport.Transport
	gate          *Gate
	onFrame       func(analysis.SpectrumFrame)
	onEnded       func()
}

// session is everything created by one Start and destroyed by Stop or by
// the source reaching its end.
type session struct {
	graph    *Graph
	analyser *analysis.Analyser
	clock    *RealtimeClock
	loop     *FrameLoop
	cancel   context.CancelFunc
	done     chan struct{}

	seq    uint32
	bins   []byte
	levels []float64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithOutput replaces the PortAudio output, mainly for tests.
func WithOutput(f OutputFactory) EngineOption {
	return func(e *Engine) { e.output = f }
}

// WithOutputConfig sets device, buffer size and latency preferences.
func WithOutputConfig(cfg OutputConfig) EngineOption {
	return func(e *Engine) { e.outputConfig = cfg }
}

// WithAnalyser sets FFT size, smoothing and window of the live analyser.
func WithAnalyser(opts analysis.Options) EngineOption {
	return func(e *Engine) { e.analyserOpts = opts }
}

// WithFrameInterval sets the display cadence.
func WithFrameInterval(d time.Duration) EngineOption {
	return func(e *Engine) { e.frameInterval = d }
}

// WithTransport publishes spectrum frames that pass gate. A nil gate lets
// every frame through.
func WithTransport(t transport.Transport, gate *Gate) EngineOption {
	return func(e *Engine) {
		e.transport = t
		e.gate = gate
	}
}

// OnFrame registers a callback run on the frame loop goroutine for every
// spectrum frame. It must return quickly and must not call Stop.
func OnFrame(fn func(analysis.SpectrumFrame)) EngineOption {
	return func(e *Engine) { e.onFrame = fn }
}

// OnEnded registers a callback run when playback reaches the end of the
// selection on its own. It is not called after Stop.
func OnEnded(fn func()) EngineOption {
	return func(e *Engine) { e.onEnded = fn }
}

// NewEngine returns an idle engine at unity volume.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		volume:        1,
		outputConfig:  OutputConfig{DeviceID: DefaultDeviceID, FramesPerBuffer: 512},
		frameInterval: DefaultFrameInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.output == nil {
		e.output = PortAudioOutput(AcquireContext())
	}
	return e
}

// State returns the current playback state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Volume returns the gain applied to the next or current session.
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// Start plays rng of buf at the mode's rate. It is a no-op while playing and
// when buf is nil. Device errors are returned and leave the engine idle.
func (e *Engine) Start(buf *pcm.Buffer, rng crop.Range, mode RenderMode, volume float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Playing {
		return nil
	}
	if buf == nil {
		applog.Debugf("Audio: start ignored, no buffer loaded")
		return nil
	}
	if !math.IsNaN(volume) {
		e.volume = volume
	}

	aopts := e.analyserOpts
	aopts.SampleRate = float64(buf.SampleRate)
	an, err := analysis.NewAnalyser(aopts)
	if err != nil {
		return err
	}
	graph, err := NewGraph(buf, GraphOptions{
		Range:    rng,
		Rate:     mode.Rate(),
		Volume:   e.volume,
		Channels: 2,
		Sink:     an,
	})
	if err != nil {
		return err
	}

	clock := &RealtimeClock{Output: e.output, Config: e.outputConfig}
	if err := clock.Open(graph); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		graph:    graph,
		analyser: an,
		clock:    clock,
		cancel:   cancel,
		done:     make(chan struct{}),
		bins:     make([]byte, an.FrequencyBinCount()),
		levels:   make([]float64, len(analysis.DefaultBands)),
	}
	s.loop = NewFrameLoop(e.frameInterval, func(now time.Time) { e.publish(s, now) })

	e.sess = s
	e.state = Playing
	s.loop.Start()

	go func() {
		defer close(s.done)
		if err := clock.Wait(ctx, graph); err != nil {
			applog.Warnf("Audio: playback stream: %v", err)
		}
		e.finish(s, ctx.Err() == nil)
	}()

	applog.Infof("Audio: preview %.2fs-%.2fs at %.1fx (%s)", rng.Start, rng.End, mode.Rate(), mode)
	return nil
}

// Stop ends the current session. It is safe to call from Idle and more than
// once.
func (e *Engine) Stop() {
	e.mu.Lock()
	s := e.sess
	e.sess = nil
	e.state = Idle
	e.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

// SetVolume changes the gain. During playback the change glides with a
// 10 ms time constant to avoid clicks.
func (e *Engine) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
	if e.sess != nil {
		e.sess.graph.Gain().SetTargetAtTime(v, VolumeTau)
	}
}

// Position returns the read position in the source while playing.
func (e *Engine) Position() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return 0, false
	}
	return e.sess.graph.Source().Position(), true
}

// Close stops playback and closes the transport.
func (e *Engine) Close() error {
	e.Stop()
	if e.transport != nil {
		return e.transport.Close()
	}
	return nil
}

// finish runs on the session goroutine once the stream has stopped.
func (e *Engine) finish(s *session, natural bool) {
	s.loop.Stop()

	e.mu.Lock()
	current := e.sess == s
	if current {
		e.sess = nil
		e.state = Idle
	}
	e.mu.Unlock()

	s.cancel()
	if natural && current {
		applog.Debugf("Audio: preview reached the end of the selection")
		if e.onEnded != nil {
			e.onEnded()
		}
	}
}

// publish runs on the frame loop goroutine.
func (e *Engine) publish(s *session, now time.Time) {
	s.analyser.ByteFrequencyData(s.bins)
	analysis.BandLevels(s.analyser, s.bins, analysis.DefaultBands, s.levels)
	s.seq++

	frame := analysis.SpectrumFrame{
		Seq:      s.seq,
		Time:     now,
		Position: s.graph.Source().Position(),
		Peak:     s.graph.Peak(),
		Bins:     append([]uint8(nil), s.bins...),
		Bands:    append([]float64(nil), s.levels...),
	}
	if e.onFrame != nil {
		e.onFrame(frame)
	}
	if e.transport != nil && e.gate.Open(frame.Peak) {
		if err := e.transport.Send(frame); err != nil {
			applog.Debugf("Audio: transport send: %v", err)
		}
	}
}
