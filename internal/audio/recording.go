// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"os"

	applog "visualizer/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// StartRecording writes every sample passed to Write into a mono WAV file
// until StopRecording or Close.
func (e *Engine) StartRecording(filename string) error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.isRecording.Load() {
		return fmt.Errorf("already recording")
	}
	switch e.opts.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported recording bit depth %d", e.opts.BitDepth)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	e.wavEncoder = wav.NewEncoder(file, e.opts.SampleRate, e.opts.BitDepth, 1, 1)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  e.opts.SampleRate,
		},
		Data:           make([]int, e.FrameSize()),
		SourceBitDepth: e.opts.BitDepth,
	}

	e.isRecording.Store(true)
	applog.Infof("Engine: Recording to %s (%d Hz, %d-bit)", filename, e.opts.SampleRate, e.opts.BitDepth)

	return nil
}

// StopRecording finalizes the WAV header and closes the file. It is a no-op
// when not recording.
func (e *Engine) StopRecording() error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if !e.isRecording.Load() {
		return nil
	}

	e.isRecording.Store(false)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	applog.Infof("Engine: Recording stopped")
	return nil
}

// Recording reports whether input is being written to a file.
func (e *Engine) Recording() bool { return e.isRecording.Load() }

// recordSamples converts samples to integers at the recording bit depth and
// appends them to the WAV file. The conversion buffer only grows.
func (e *Engine) recordSamples(samples []float32) {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.wavEncoder == nil {
		return
	}

	if cap(e.sampleBuf.Data) < len(samples) {
		e.sampleBuf.Data = make([]int, len(samples))
	}
	e.sampleBuf.Data = e.sampleBuf.Data[:len(samples)]

	fullScale := float64(int64(1)<<(e.opts.BitDepth-1) - 1)
	for i, s := range samples {
		e.sampleBuf.Data[i] = quantize(float64(s), fullScale)
	}

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		applog.Errorf("Engine: Error writing to WAV file: %v", err)
	}
}

// quantize maps x in [-1, 1] to a signed integer of the given full scale.
func quantize(x, fullScale float64) int {
	if math.IsNaN(x) {
		return 0
	}
	x = max(-1, min(1, x))
	return int(math.Round(x * fullScale))
}
