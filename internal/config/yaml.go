// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"forestric/internal/analysis"
	"forestric/internal/audio"
	applog "forestric/internal/log"
	"forestric/pkg/bitint"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORESTRIC_"

// Config represents the application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Shorthand for log_level: debug.
	LogLevel  string          `yaml:"log_level"` // debug, info, warn, error.
	LogFile   string          `yaml:"log_file"`  // Log destination; empty logs to stderr.
	Studio    StudioConfig    `yaml:"studio"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Canvas    CanvasConfig    `yaml:"canvas"`
	Export    ExportConfig    `yaml:"export"`
	Transport TransportConfig `yaml:"transport"`
}

// StudioConfig holds the editor's starting state.
type StudioConfig struct {
	Mode   string  `yaml:"mode"`   // standard (2.5x) or smooth (2.0x).
	Volume float64 `yaml:"volume"` // Master gain, 0 to 2.
}

// PlaybackConfig holds output device settings for previews.
type PlaybackConfig struct {
	OutputDevice    int           `yaml:"output_device"`     // PortAudio device index (-1 for default).
	FramesPerBuffer int           `yaml:"frames_per_buffer"` // Rounded up to a power of two.
	LowLatency      bool          `yaml:"low_latency"`       // Request the device's low latency.
	FrameInterval   time.Duration `yaml:"frame_interval"`    // Spectrum display cadence.
}

// AnalysisConfig holds the live analyser settings.
type AnalysisConfig struct {
	FFTSize   int     `yaml:"fft_size"`
	Smoothing float64 `yaml:"smoothing"`
	FFTWindow string  `yaml:"fft_window"` // e.g. "Blackman", "Hann".
}

// CanvasConfig sizes rendered waveform images.
type CanvasConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ExportConfig holds export destination settings.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// TransportConfig enables spectrum publishing while previewing.
type TransportConfig struct {
	WebSocketEnabled bool    `yaml:"websocket_enabled"`
	WebSocketAddress string  `yaml:"websocket_address"`
	UDPEnabled       bool    `yaml:"udp_enabled"`
	UDPTargetAddress string  `yaml:"udp_target_address"`
	LogFrames        bool    `yaml:"log_frames"`     // Log every frame at debug level.
	GateThreshold    float64 `yaml:"gate_threshold"` // Peak below which frames are not published; 0 disables.
}

// LoadConfig loads configuration from the YAML file at path. If path is
// empty it looks for "forestric.yaml" and "config.yaml" in the working
// directory and falls back to built-in defaults. Environment overrides are
// applied after the file, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"forestric.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Validate checks every field that has a restricted domain.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return errors.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	if _, err := audio.ParseRenderMode(c.Studio.Mode); err != nil {
		return errors.Wrap(err, "studio.mode")
	}
	if c.Studio.Volume < 0 || c.Studio.Volume > MaxVolume {
		return errors.Errorf("studio.volume %.2f must be between 0 and %.0f", c.Studio.Volume, MaxVolume)
	}
	if c.Playback.OutputDevice < MinDeviceID {
		return errors.Errorf("playback.output_device %d is invalid", c.Playback.OutputDevice)
	}
	if c.Playback.FramesPerBuffer <= 0 || c.Playback.FramesPerBuffer > MaxBufferFrames {
		return errors.Errorf("playback.frames_per_buffer must be in 1..%d, got %d", MaxBufferFrames, c.Playback.FramesPerBuffer)
	}
	if c.Playback.FrameInterval <= 0 {
		return errors.Errorf("playback.frame_interval must be positive, got %s", c.Playback.FrameInterval)
	}
	if !bitint.IsPowerOfTwo(c.Analysis.FFTSize) || c.Analysis.FFTSize < 32 {
		return errors.Errorf("analysis.fft_size must be a power of two >= 32, got %d", c.Analysis.FFTSize)
	}
	if c.Analysis.Smoothing < 0 || c.Analysis.Smoothing >= 1 {
		return errors.Errorf("analysis.smoothing must be in [0, 1), got %.2f", c.Analysis.Smoothing)
	}
	if _, err := analysis.ParseWindowFunc(c.Analysis.FFTWindow); err != nil {
		return errors.Wrap(err, "analysis.fft_window")
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 || c.Canvas.Width > MaxCanvasSide || c.Canvas.Height > MaxCanvasSide {
		return errors.Errorf("canvas %dx%d is out of range", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		return errors.New("transport.websocket_address must be set when the websocket is enabled")
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return errors.New("transport.udp_target_address must be set when UDP is enabled")
		}
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return errors.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
	}
	if c.Transport.GateThreshold < 0 || c.Transport.GateThreshold > 1 {
		return errors.Errorf("transport.gate_threshold must be in [0, 1], got %.3f", c.Transport.GateThreshold)
	}
	return nil
}

// EffectiveLogLevel resolves Debug and LogLevel into one level.
func (c *Config) EffectiveLogLevel() applog.LogLevel {
	if c.Debug {
		return applog.LevelDebug
	}
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}

// applyEnvOverrides reads FORESTRIC_* variables. Malformed values are
// ignored.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := lookupEnv("DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = b
			applog.Debugf("configuration: Overriding debug from env: %v", b)
		}
	}
	if val, ok := lookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := lookupEnv("MODE"); ok {
		cfg.Studio.Mode = val
	}
	if val, ok := lookupEnv("VOLUME"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Studio.Volume = f
		}
	}
	if val, ok := lookupEnv("OUTPUT_DEVICE"); ok {
		if id, err := strconv.Atoi(val); err == nil {
			cfg.Playback.OutputDevice = id
		}
	}
	if val, ok := lookupEnv("EXPORT_DIR"); ok {
		cfg.Export.OutputDir = val
	}
	if val, ok := lookupEnv("WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WebSocketEnabled = b
		}
	}
	if val, ok := lookupEnv("WS_ADDRESS"); ok {
		cfg.Transport.WebSocketAddress = val
	}
	if val, ok := lookupEnv("UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = b
		}
	}
	if val, ok := lookupEnv("UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
}

func lookupEnv(name string) (string, bool) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if ok {
		applog.Debugf("configuration: %s%s set from environment", EnvPrefix, name)
	}
	return val, ok
}
