// SPDX-License-Identifier: MIT
package cmd

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"forestric/internal/analysis"
	"forestric/internal/audio"
	"forestric/internal/config"
	"forestric/internal/export"
	applog "forestric/internal/log"
	"forestric/internal/studio"
	"forestric/internal/transport"
	"forestric/internal/transport/udp"
)

// frameBacklog bounds how many spectrum frames wait for the UI. Older
// frames are dropped rather than blocking the frame loop.
const frameBacklog = 4

// app holds everything one command run creates from the configuration.
type app struct {
	cfg    *config.Config
	engine *audio.Engine
	studio *studio.Studio
	frames chan analysis.SpectrumFrame
	ended  chan struct{}
}

// setupLogging applies the configured level and destination. With quiet
// set and no log file the log is discarded, which keeps the terminal UI
// clean.
func setupLogging(cfg *config.Config, quiet bool) (*os.File, error) {
	applog.SetLevel(cfg.EffectiveLogLevel())
	if cfg.LogFile != "" {
		f, err := applog.OpenFile(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		applog.SetOutput(f)
		return f, nil
	}
	if quiet {
		applog.SetOutput(io.Discard)
	}
	return nil, nil
}

// newTransport builds the configured spectrum sinks. It returns nil when
// none is enabled.
func newTransport(cfg config.TransportConfig) (transport.Transport, *audio.Gate, error) {
	var sinks []transport.Transport
	if cfg.WebSocketEnabled {
		sinks = append(sinks, transport.NewWebSocketTransport(cfg.WebSocketAddress))
	}
	if cfg.UDPEnabled {
		p, err := udp.NewPublisher(cfg.UDPTargetAddress)
		if err != nil {
			for _, s := range sinks {
				s.Close()
			}
			return nil, nil, errors.Wrap(err, "failed to start UDP publisher")
		}
		sinks = append(sinks, p)
	}
	if cfg.LogFrames {
		sinks = append(sinks, transport.NewLoggingTransport())
	}
	if len(sinks) == 0 {
		return nil, nil, nil
	}
	return transport.NewFanout(sinks...), audio.NewGate(cfg.GateThreshold), nil
}

// engineOptions maps the configuration onto the playback engine.
func engineOptions(cfg *config.Config) ([]audio.EngineOption, error) {
	window, err := analysis.ParseWindowFunc(cfg.Analysis.FFTWindow)
	if err != nil {
		return nil, err
	}
	return []audio.EngineOption{
		audio.WithOutputConfig(audio.OutputConfig{
			DeviceID:        cfg.Playback.OutputDevice,
			FramesPerBuffer: cfg.Playback.FramesPerBuffer,
			LowLatency:      cfg.Playback.LowLatency,
		}),
		audio.WithAnalyser(analysis.Options{
			FFTSize:   cfg.Analysis.FFTSize,
			Smoothing: cfg.Analysis.Smoothing,
			Window:    window,
		}),
		audio.WithFrameInterval(cfg.Playback.FrameInterval),
	}, nil
}

// newApp wires the studio to a playback engine, its transports and the
// MP3 exporter. extra options are applied last.
func newApp(cfg *config.Config, extra ...audio.EngineOption) (*app, error) {
	mode, err := audio.ParseRenderMode(cfg.Studio.Mode)
	if err != nil {
		return nil, err
	}
	opts, err := engineOptions(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		frames: make(chan analysis.SpectrumFrame, frameBacklog),
		ended:  make(chan struct{}, 1),
	}

	sink, gate, err := newTransport(cfg.Transport)
	if err != nil {
		return nil, err
	}
	if sink != nil {
		opts = append(opts, audio.WithTransport(sink, gate))
	}
	opts = append(opts,
		audio.OnFrame(func(f analysis.SpectrumFrame) {
			select {
			case a.frames <- f:
			default:
			}
		}),
		audio.OnEnded(func() {
			select {
			case a.ended <- struct{}{}:
			default:
			}
		}),
	)
	opts = append(opts, extra...)

	a.engine = audio.NewEngine(opts...)
	a.studio = studio.New(a.engine, export.NewExporter(export.MP3Encoder),
		studio.WithMode(mode),
		studio.WithVolume(cfg.Studio.Volume),
	)
	return a, nil
}

// Close stops playback and releases the engine and its transports.
func (a *app) Close() error {
	a.studio.Stop()
	return a.engine.Close()
}
