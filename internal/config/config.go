// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"visualizer/internal/pipeline"
)

// Core configuration constants that define the boundaries and defaults
// for the visualization engine.
const (
	// Audio capture defaults
	DefaultChannels        = 1           // Mono audio
	DefaultDeviceID        = MinDeviceID // Default to system default device
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false       // Standard latency mode
	DefaultSampleRate      = 44100       // CD-quality audio

	// Pipeline defaults
	DefaultProfile   = "full"
	DefaultWindowing = "windowed"
	DefaultWindow    = "hann"
	DefaultMagnitude = "scaled"
	DefaultFrameRate = 60.0 // Display frames per second

	// Recording defaults
	DefaultRecordInputStream = false
	DefaultOutputDir         = "./recordings"
	DefaultOutputFile        = "" // Auto-generated filename
	DefaultBitDepth          = 16

	// Transport defaults
	DefaultWebSocketAddress = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 16 * time.Millisecond // ~60Hz

	DefaultLogLevel  = "info"
	DefaultVerbosity = false

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
	MaxChannels     = 32
	MaxFrameRate    = 240.0
)

// Default returns the built-in configuration used when no file is found.
func Default() *Config {
	return &Config{
		Debug:    DefaultVerbosity,
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultChannels,
		},
		Pipeline: PipelineConfig{
			FrameSize:     pipeline.DefaultFrameSize,
			OutputWidth:   pipeline.DefaultOutputWidth,
			Profile:       DefaultProfile,
			Windowing:     DefaultWindowing,
			Window:        DefaultWindow,
			Magnitude:     DefaultMagnitude,
			Divisor:       pipeline.DefaultDivisor,
			Amplification: pipeline.DefaultAmplification,
			Retention:     pipeline.DefaultRetention,
			FrameRate:     DefaultFrameRate,
		},
		Recording: RecordingConfig{
			Enabled:    DefaultRecordInputStream,
			OutputDir:  DefaultOutputDir,
			OutputFile: DefaultOutputFile,
			BitDepth:   DefaultBitDepth,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddress: DefaultWebSocketAddress,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}

// PipelineOptions converts the pipeline section into pipeline.Options.
// Returns an error wrapping pipeline.ErrConfig for unknown mode names.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	p := c.Pipeline
	opts := pipeline.DefaultOptions()

	profile, err := pipeline.ParseProfile(p.Profile)
	if err != nil {
		return opts, err
	}
	windowing, err := pipeline.ParseWindowing(p.Windowing)
	if err != nil {
		return opts, err
	}
	magnitude, err := pipeline.ParseMagnitudeMode(p.Magnitude)
	if err != nil {
		return opts, err
	}

	opts.FrameSize = p.FrameSize
	opts.OutputWidth = p.OutputWidth
	opts.Profile = profile
	opts.Windowing = windowing
	opts.Window = p.Window
	opts.Magnitude = magnitude
	opts.Divisor = p.Divisor
	opts.Amplification = p.Amplification
	opts.Retention = p.Retention
	opts.Step = p.Step

	return opts, nil
}

// FrameInterval returns the display frame period derived from FrameRate.
func (c *Config) FrameInterval() time.Duration {
	rate := c.Pipeline.FrameRate
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	return time.Duration(float64(time.Second) / rate)
}
