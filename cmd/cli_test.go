// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"forestric/internal/audio"
	"forestric/internal/pcm"
	"forestric/pkg/utils"
)

// Commands set the global log level and output, so these tests do not run
// in parallel.

func fixture(t *testing.T, rate int, seconds float64) (dir, track, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	buf, err := pcm.FromChannels(rate, utils.GenerateSineWave(int(seconds*float64(rate)), float64(rate), 440))
	if err != nil {
		t.Fatal(err)
	}
	track = filepath.Join(dir, "tone.wav")
	if err := audio.SaveWAV(track, buf); err != nil {
		t.Fatal(err)
	}
	cfgPath = filepath.Join(dir, "forestric.yaml")
	cfg := "log_level: error\nexport:\n  output_dir: " + dir + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, track, cfgPath
}

func run(t *testing.T, r *runner, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	r.out = &out
	root := newRootCommand(r)
	root.SetArgs(args)
	t.Cleanup(func() {
		if r.logFile != nil {
			r.logFile.Close()
		}
	})
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"90.5", 90.5, true},
		{" 2 ", 2, true},
		{"1:30.5", 90.5, true},
		{"0:07", 7, true},
		{"1:x", 0, false},
		{"a:10", 0, false},
		{"soon", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("ParseTime(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestExport_MP3(t *testing.T) {
	dir, track, cfg := fixture(t, 44100, 1)

	out, err := run(t, &runner{}, "export", track, "--config", cfg, "--start", "0.2", "--end", "0:00.70")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Exported") || !strings.Contains(out, "Days Render") {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "tone_forestric.mp3"))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1]&0xE0 != 0xE0 {
		t.Errorf("not an MPEG stream: % x", data[:min(4, len(data))])
	}
}

func TestExport_WAVLength(t *testing.T) {
	dir, track, cfg := fixture(t, 44100, 1)
	dst := filepath.Join(dir, "preview.wav")

	_, err := run(t, &runner{}, "export", track, "--config", cfg,
		"--format", "wav", "--mode", "smooth", "--end", "0.5", "-o", dst)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := audio.Decode(context.Background(), "preview.wav", data)
	if err != nil {
		t.Fatal(err)
	}
	if want := audio.OutputFrameCount(0.5, 2, 44100); buf.Frames != want {
		t.Errorf("frames = %d, want %d", buf.Frames, want)
	}
}

func TestExport_Errors(t *testing.T) {
	dir, track, cfg := fixture(t, 8000, 1)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"export", filepath.Join(dir, "nope.wav")}, "nope.wav"},
		{"bad format", []string{"export", track, "--format", "flac"}, "unknown format"},
		{"inverted range", []string{"export", track, "--start", "0.8", "--end", "0.2"}, "not after start"},
		{"bad time", []string{"export", track, "--end", "later"}, "invalid time"},
		{"bad mode", []string{"export", track, "--mode", "turbo"}, "invalid flags"},
		{"bad volume", []string{"export", track, "--volume", "3"}, "invalid flags"},
		{"no args", []string{"export"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, &runner{}, append(tt.args, "--config", cfg)...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}

	var de *audio.DecodeError
	_, err := run(t, &runner{}, "export", filepath.Join(dir, "nope.wav"), "--config", cfg)
	if !errors.As(err, &de) {
		t.Errorf("missing file error = %T", err)
	}
}

func TestInfo(t *testing.T) {
	_, track, cfg := fixture(t, 8000, 2)

	out, err := run(t, &runner{}, "info", track, "--config", cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"File:        tone.wav",
		"Format:      wav",
		"Sample rate: 8000 Hz",
		"Duration:    0:02.00 (16000 frames)",
		"Days Render at 2.5x",
		"Abiw Render at 2.0x",
		"(8000 frames)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("info missing %q:\n%s", want, out)
		}
	}
}

func TestWaveform(t *testing.T) {
	dir, track, cfg := fixture(t, 8000, 1)

	out, err := run(t, &runner{}, "waveform", track, "--config", cfg,
		"--width", "64", "--height", "16", "--spectrum", "--start", "0.25")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "64x16") {
		t.Errorf("output = %q", out)
	}
	f, err := os.Open(filepath.Join(dir, "tone_waveform.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 16 {
		t.Errorf("bounds = %v", b)
	}
}

// pullStream renders on its own goroutine the way a host audio thread
// would.
type pullStream struct {
	cfg    audio.OutputConfig
	render func(out [][]float32)
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func pullOutput(cfg audio.OutputConfig, render func(out [][]float32)) (audio.OutputStream, error) {
	return &pullStream{cfg: cfg, render: render, stop: make(chan struct{})}, nil
}

func (s *pullStream) Start() error {
	out := make([][]float32, s.cfg.Channels)
	for ch := range out {
		out[ch] = make([]float32, s.cfg.FramesPerBuffer)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.stop:
				return
			default:
				s.render(out)
			}
		}
	}()
	return nil
}

func (s *pullStream) Stop() error {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
	return nil
}

func (s *pullStream) Abort() error { return s.Stop() }

func (s *pullStream) Close() error { return nil }

func TestPlay_RunsToEnd(t *testing.T) {
	_, track, cfg := fixture(t, 8000, 1)

	r := &runner{engineOpts: []audio.EngineOption{audio.WithOutput(pullOutput)}}
	out, err := run(t, r, "play", track, "--config", cfg, "--end", "0.5")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Playing tone.wav 0:00.00-0:00.50") || !strings.Contains(out, "Finished") {
		t.Errorf("output = %q", out)
	}
}
