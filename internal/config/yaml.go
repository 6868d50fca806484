// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	applog "visualizer/internal/log"
	"visualizer/internal/pipeline"
	"visualizer/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (verbose logging, frame stats).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	TUI       bool            `yaml:"tui"`       // Show the terminal preview.
	Audio     AudioConfig     `yaml:"audio"`     // Audio capture settings.
	Pipeline  PipelineConfig  `yaml:"pipeline"`  // Visualization pipeline settings.
	Recording RecordingConfig `yaml:"recording"` // Input recording settings.
	Transport TransportConfig `yaml:"transport"` // Output transport settings (WebSocket, UDP).
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Number of audio frames per capture callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	InputChannels   int     `yaml:"input_channels"`    // Number of input channels to capture (downmixed to mono).
}

// PipelineConfig holds the visualization pipeline parameters.
type PipelineConfig struct {
	FrameSize     int     `yaml:"frame_size"`    // Samples per frame, a power of 2.
	OutputWidth   int     `yaml:"output_width"`  // Length of the output magnitude buffer.
	Profile       string  `yaml:"profile"`       // Weighting profile ("full", "reduced").
	Windowing     string  `yaml:"windowing"`     // "windowed" or "raw".
	Window        string  `yaml:"window"`        // Window function name (e.g., "hann", "hamming").
	Magnitude     string  `yaml:"magnitude"`     // Magnitude mode ("scaled", "rms", "loudness").
	Divisor       float64 `yaml:"divisor"`       // Scaled magnitude divisor.
	Amplification float64 `yaml:"amplification"` // Flat gain in raw mode.
	Retention     float64 `yaml:"retention"`     // Fraction of bins kept, in [0, 1].
	Step          int     `yaml:"step"`          // Remap step (0 spreads evenly).
	FrameRate     float64 `yaml:"frame_rate"`    // Display frames per second.
}

// RecordingConfig holds settings related to input recording.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record captured input to WAV.
	OutputDir  string `yaml:"output_dir"`  // Directory for auto-named recordings.
	OutputFile string `yaml:"output_file"` // Explicit output path, overrides OutputDir.
	BitDepth   int    `yaml:"bit_depth"`   // Bit depth for recorded audio (16, 24 or 32).
}

// TransportConfig holds settings related to sending output magnitudes.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Broadcast each frame over WebSocket.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address for the WebSocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Publish output magnitudes over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
}

// Load reads a YAML file at path over the built-in defaults and applies
// ENV_* overrides. An empty path searches "config.yaml" and
// "visualizer.yaml"; with no file the defaults are used. The result is not
// validated, so callers can apply further overrides first.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"visualizer.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level '%s' is not a known level", c.LogLevel)
	}

	// Audio Validation
	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be in [%d, %d], got %.0f", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be in (0, %d], got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.InputChannels < 1 || a.InputChannels > MaxChannels {
		return fmt.Errorf("audio.input_channels must be in [1, %d], got %d", MaxChannels, a.InputChannels)
	}

	// Pipeline Validation
	opts, err := c.PipelineOptions()
	if err != nil {
		return err
	}
	if _, err := pipeline.New(opts); err != nil {
		if errors.Is(err, pipeline.ErrFrameSize) && c.Pipeline.FrameSize > 0 {
			return fmt.Errorf("pipeline.frame_size: %w (nearest valid: %d)", err, nearestFrameSize(c.Pipeline.FrameSize))
		}
		return err
	}
	if c.Pipeline.FrameRate <= 0 || c.Pipeline.FrameRate > MaxFrameRate {
		return fmt.Errorf("pipeline.frame_rate must be in (0, %.0f], got %g", MaxFrameRate, c.Pipeline.FrameRate)
	}

	// Recording Validation
	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
	}

	// Transport Validation
	t := c.Transport
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if !strings.Contains(t.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", t.UDPTargetAddress)
		}
		if t.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		return fmt.Errorf("transport.websocket_address must be set when WebSocket is enabled")
	}

	return nil
}

// nearestFrameSize returns the closest power of 2 within the pipeline limits.
func nearestFrameSize(n int) int {
	lo, hi := bitint.PrevPowerOfTwo(n), bitint.NextPowerOfTwo(n)
	best := hi
	if n-lo < hi-n {
		best = lo
	}
	return max(pipeline.MinFrameSize, min(best, pipeline.MaxFrameSize))
}

// applyEnvOverrides reads ENV_* variables and overrides the matching fields.
// Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Infof("Config: Overriding debug from env: %v", bVal)
		} else {
			applog.Warnf("Config: Ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Infof("Config: Overriding log_level from env: %s", val)
	}

	// ENV_PIPELINE_{...}
	// These are specific to the visualization pipeline.

	// ENV_PIPELINE_PROFILE
	if val, ok := os.LookupEnv("ENV_PIPELINE_PROFILE"); ok {
		c.Pipeline.Profile = val
		applog.Infof("Config: Overriding pipeline.profile from env: %s", val)
	}
	// ENV_PIPELINE_FRAME_SIZE
	if val, ok := os.LookupEnv("ENV_PIPELINE_FRAME_SIZE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Pipeline.FrameSize = iVal
			applog.Infof("Config: Overriding pipeline.frame_size from env: %d", iVal)
		} else {
			applog.Warnf("Config: Ignoring ENV_PIPELINE_FRAME_SIZE=%q: %v", val, err)
		}
	}
	// ENV_PIPELINE_RETENTION
	if val, ok := os.LookupEnv("ENV_PIPELINE_RETENTION"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			c.Pipeline.Retention = fVal
			applog.Infof("Config: Overriding pipeline.retention from env: %g", fVal)
		} else {
			applog.Warnf("Config: Ignoring ENV_PIPELINE_RETENTION=%q: %v", val, err)
		}
	}

	// ENV_WS_{...} and ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_WS_ENABLED
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = bVal
			applog.Infof("Config: Overriding transport.websocket_enabled from env: %v", bVal)
		}
	}
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		applog.Infof("Config: Overriding transport.websocket_address from env: %s", val)
	}
	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			applog.Infof("Config: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Infof("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			applog.Infof("Config: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
