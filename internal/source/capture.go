// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"math"
	"runtime"
	"time"

	applog "visualizer/internal/log"

	"github.com/gordonklaus/portaudio"
)

// Sink receives mono samples as they arrive. Write is called from the audio
// callback thread and must not block.
type Sink interface {
	Write(samples []float32)
}

// CaptureConfig selects the input device and stream parameters.
type CaptureConfig struct {
	DeviceID        int
	SampleRate      float64
	FramesPerBuffer int
	Channels        int
	LowLatency      bool
}

// Capture streams a PortAudio input device into a Sink.
//
// Performance Critical:
//   - The stream callback converts and downmixes into a pre-allocated buffer
//   - No dynamic allocations in the hot path
type Capture struct {
	cfg     CaptureConfig
	device  *portaudio.DeviceInfo
	latency time.Duration
	stream  *portaudio.Stream
	sink    Sink
	mono    []float32
}

// NewCapture resolves the input device. PortAudio must be initialized.
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	if cfg.Channels < 1 {
		return nil, fmt.Errorf("capture: channels must be positive, got %d", cfg.Channels)
	}
	if cfg.FramesPerBuffer < 1 {
		return nil, fmt.Errorf("capture: frames per buffer must be positive, got %d", cfg.FramesPerBuffer)
	}

	device, err := InputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	c := &Capture{
		cfg:    cfg,
		device: device,
		mono:   make([]float32, cfg.FramesPerBuffer),
	}
	if cfg.LowLatency {
		c.latency = device.DefaultLowInputLatency
	} else {
		c.latency = device.DefaultHighInputLatency
	}
	return c, nil
}

// SampleRate returns the stream sample rate in Hz.
func (c *Capture) SampleRate() int { return int(c.cfg.SampleRate) }

// DeviceName returns the name of the resolved input device.
func (c *Capture) DeviceName() string { return c.device.Name }

// Start opens the input stream and begins delivering samples to sink.
func (c *Capture) Start(sink Sink) error {
	if c.stream != nil {
		return fmt.Errorf("capture: already started")
	}
	c.sink = sink

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: c.cfg.Channels,
			Device:   c.device,
			Latency:  c.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: c.cfg.FramesPerBuffer,
		SampleRate:      c.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processInputStream)
	if err != nil {
		return fmt.Errorf("capture: failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("capture: failed to start stream: %w", err)
	}
	c.stream = stream

	applog.Infof("Capture: Streaming from '%s' (%.0f Hz, %d ch, %d frames, latency %s)",
		c.device.Name, c.cfg.SampleRate, c.cfg.Channels, c.cfg.FramesPerBuffer, c.latency)
	return nil
}

// Stop stops and closes the input stream. Safe to call when not started.
func (c *Capture) Stop() error {
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		return err
	}
	if err := c.stream.Close(); err != nil {
		return err
	}
	c.stream = nil
	return nil
}

// Close implements io.Closer.
func (c *Capture) Close() error {
	return c.Stop()
}

// processInputStream is the PortAudio callback.
func (c *Capture) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := convertInt32(c.mono, in, c.cfg.Channels)
	c.sink.Write(c.mono[:n])
}

// convertInt32 downmixes interleaved full-scale int32 samples into dst as
// floats in [-1, 1] and returns the number of mono samples written.
func convertInt32(dst []float32, in []int32, channels int) int {
	frames := min(len(in)/channels, len(dst))
	scale := 1 / (float32(math.MaxInt32) + 1) / float32(channels)

	for i := range frames {
		var sum float32
		for _, s := range in[i*channels : (i+1)*channels] {
			sum += float32(s)
		}
		dst[i] = sum * scale
	}
	return frames
}

var _ interface{ Close() error } = (*Capture)(nil)
