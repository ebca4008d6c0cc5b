// SPDX-License-Identifier: MIT

// Package studio holds the editor state: the loaded track, its crop, the
// render mode and the master volume, and forwards play and export requests
// to the engine and exporter.
//
// A Studio is owned by one goroutine (the UI loop). Long operations take a
// snapshot and run elsewhere.
package studio

import (
	"context"
	"math"
	"os"
	"path/filepath"

	"forestric/internal/audio"
	"forestric/internal/crop"
	"forestric/internal/export"
	applog "forestric/internal/log"
	"forestric/internal/pcm"
)

// Volume limits and step of the master gain control.
const (
	MinVolume  = 0.0
	MaxVolume  = 2.0
	VolumeStep = 0.05
)

// Player is the part of audio.Engine the studio drives.
type Player interface {
	Start(buf *pcm.Buffer, rng crop.Range, mode audio.RenderMode, volume float64) error
	Stop()
	SetVolume(v float64)
	State() audio.State
}

// DecodeFunc turns file bytes into a buffer.
type DecodeFunc func(ctx context.Context, name string, data []byte) (*pcm.Buffer, error)

// Track is a decoded file.
type Track struct {
	Name   string
	Buffer *pcm.Buffer
}

// Studio is the editor state.
type Studio struct {
	track  *Track
	crop   *crop.Model
	mode   audio.RenderMode
	volume float64

	player   Player
	exporter *export.Exporter
	decode   DecodeFunc
}

// Option configures a Studio.
type Option func(*Studio)

// WithDecoder replaces audio.Decode.
func WithDecoder(fn DecodeFunc) Option {
	return func(s *Studio) { s.decode = fn }
}

// WithMode sets the initial render mode.
func WithMode(m audio.RenderMode) Option {
	return func(s *Studio) { s.mode = m }
}

// WithVolume sets the initial volume.
func WithVolume(v float64) Option {
	return func(s *Studio) { s.volume = clampVolume(v) }
}

// New returns an empty studio at unity volume in Standard mode.
func New(player Player, exporter *export.Exporter, opts ...Option) *Studio {
	s := &Studio{
		volume:   1,
		player:   player,
		exporter: exporter,
		decode:   audio.Decode,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.exporter == nil {
		s.exporter = export.NewExporter(nil)
	}
	return s
}

// Load decodes data and selects the whole track. Any failure, including
// ErrNoFile and audio too short to crop, leaves the studio with no file
// loaded.
func (s *Studio) Load(ctx context.Context, name string, data []byte) error {
	s.Stop()
	s.track, s.crop = nil, nil

	buf, err := s.decode(ctx, name, data)
	if err != nil {
		return err
	}
	return s.SetTrack(name, buf)
}

// SetTrack adopts an already decoded buffer, replacing the current track.
// Audio too short to crop is reported as a DecodeError and leaves no file
// loaded.
func (s *Studio) SetTrack(name string, buf *pcm.Buffer) error {
	s.Stop()
	s.track, s.crop = nil, nil
	if buf == nil {
		return audio.ErrNoFile
	}
	model, err := crop.New(buf.Duration())
	if err != nil {
		return &audio.DecodeError{Name: name, Err: err}
	}
	s.track = &Track{Name: name, Buffer: buf}
	s.crop = model
	applog.Infof("Studio: loaded %s (%s)", name, crop.FormatMinutesSeconds(buf.Duration()))
	return nil
}

// LoadFile reads path and loads it. An empty path is audio.ErrNoFile.
func (s *Studio) LoadFile(ctx context.Context, path string) error {
	if path == "" {
		s.Reset()
		return audio.ErrNoFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.Reset()
		return &audio.DecodeError{Name: filepath.Base(path), Err: err}
	}
	return s.Load(ctx, filepath.Base(path), data)
}

// Reset stops playback and unloads the track. Mode and volume are kept.
func (s *Studio) Reset() {
	s.Stop()
	s.track, s.crop = nil, nil
}

// Loaded reports whether a track is loaded.
func (s *Studio) Loaded() bool { return s.track != nil }

// Track returns the loaded track or nil.
func (s *Studio) Track() *Track { return s.track }

// Crop returns the crop model of the loaded track or nil.
func (s *Studio) Crop() *crop.Model { return s.crop }

// Range returns the current selection, or the zero range without a track.
func (s *Studio) Range() crop.Range {
	if s.crop == nil {
		return crop.Range{}
	}
	return s.crop.Range()
}

// Mode returns the render mode.
func (s *Studio) Mode() audio.RenderMode { return s.mode }

// SetMode changes the render mode used by the next preview and export.
func (s *Studio) SetMode(m audio.RenderMode) { s.mode = m }

// CycleMode switches to the next mode and returns it.
func (s *Studio) CycleMode() audio.RenderMode {
	s.mode = s.mode.Next()
	return s.mode
}

// Volume returns the master gain.
func (s *Studio) Volume() float64 { return s.volume }

// SetVolume clamps v to [MinVolume, MaxVolume], snaps it to VolumeStep and
// applies it to the playing preview.
func (s *Studio) SetVolume(v float64) float64 {
	s.volume = clampVolume(v)
	if s.player != nil {
		s.player.SetVolume(s.volume)
	}
	return s.volume
}

// NudgeVolume moves the volume by steps increments.
func (s *Studio) NudgeVolume(steps int) float64 {
	return s.SetVolume(s.volume + float64(steps)*VolumeStep)
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 1
	}
	v = math.Round(v/VolumeStep) * VolumeStep
	return math.Max(MinVolume, math.Min(MaxVolume, v))
}

// Playing reports whether a preview is running.
func (s *Studio) Playing() bool {
	return s.player != nil && s.player.State() == audio.Playing
}

// Play previews the selection. Without a track it does nothing.
func (s *Studio) Play() error {
	if s.track == nil || s.player == nil {
		return nil
	}
	return s.player.Start(s.track.Buffer, s.crop.Range(), s.mode, s.volume)
}

// Stop ends the preview, if any.
func (s *Studio) Stop() {
	if s.player != nil {
		s.player.Stop()
	}
}

// Toggle starts or stops the preview.
func (s *Studio) Toggle() error {
	if s.Playing() {
		s.Stop()
		return nil
	}
	return s.Play()
}

// ExportRequest is a snapshot of everything one export needs, safe to hand
// to another goroutine.
type ExportRequest struct {
	Name   string
	Buffer *pcm.Buffer
	Range  crop.Range
	Mode   audio.RenderMode
	Volume float64
}

// ExportRequest snapshots the current state. It reports false without a
// track.
func (s *Studio) ExportRequest() (ExportRequest, bool) {
	if s.track == nil {
		return ExportRequest{}, false
	}
	return ExportRequest{
		Name:   s.track.Name,
		Buffer: s.track.Buffer,
		Range:  s.crop.Range(),
		Mode:   s.mode,
		Volume: s.volume,
	}, true
}

// Export runs req on the studio's exporter. It may be called from any
// goroutine; a second export while one runs fails with export.ErrBusy.
func (s *Studio) Export(ctx context.Context, req ExportRequest) (export.File, error) {
	return s.exporter.Export(ctx, req.Buffer, req.Name, req.Range, req.Mode, req.Volume)
}

// Exporting reports whether an export is running.
func (s *Studio) Exporting() bool { return s.exporter.Busy() }
