// SPDX-License-Identifier: MIT
/*
Package audio implements the real-time frame engine that drives the
visualization pipeline:
- Captured or decoded samples land in a lock-guarded ring buffer
- A frame ticker encodes the newest N samples as bytes and processes one frame
- Pause and reset requests are executed on the frame goroutine
- The latest output is published to transports and read by renderers
- Input can be recorded to WAV with atomic state management

Thread Safety:
- Only the goroutine running Run touches the pipeline
- The output snapshot is guarded by an RWMutex
- Pre-allocates buffers to avoid GC in the frame path
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	applog "visualizer/internal/log"
	"visualizer/internal/pipeline"
	"visualizer/internal/source"
	"visualizer/internal/transport"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrEngineClosed is returned by operations on a closed engine.
var ErrEngineClosed = errors.New("engine closed")

const (
	DefaultFrameInterval = time.Second / 60
	DefaultBitDepth      = 16

	// historyFrames is the ring capacity in frames when Options.History is unset.
	historyFrames = 4
)

// Options configures an Engine.
type Options struct {
	Pipeline   pipeline.Options
	SampleRate int                   // Input sample rate in Hz, used for recording
	Interval   time.Duration         // Frame period; zero means DefaultFrameInterval
	History    int                   // Ring capacity in samples; zero means 4 frames
	BitDepth   int                   // Recording bit depth; zero means DefaultBitDepth
	Transports []transport.Transport // Receive every published frame
}

type commandKind int

const (
	cmdTogglePause commandKind = iota
	cmdReset
)

type command struct {
	kind  commandKind
	reply chan bool
}

// Engine owns one pipeline and feeds it on a fixed frame clock.
type Engine struct {
	opts     Options
	pipeline *pipeline.Pipeline
	ring     *RingBuffer

	// Frame buffers, reused every tick.
	samples []float32
	block   []byte

	commands chan command
	running  atomic.Bool

	// Latest output snapshot for concurrent readers.
	mu     sync.RWMutex
	latest []float32
	seq    uint64
	paused atomic.Bool

	transports []transport.Transport
	sentPaused bool // Last published frame was paused

	// Recording state and buffers.
	isRecording atomic.Bool
	recMu       sync.Mutex // Guards the encoder against concurrent Stop
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer

	done      chan struct{}
	closeOnce sync.Once
}

// NewEngine builds the pipeline and pre-allocates every frame buffer.
func NewEngine(opts Options) (*Engine, error) {
	p, err := pipeline.New(opts.Pipeline)
	if err != nil {
		return nil, err
	}

	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("engine: sample rate must be positive, got %d", opts.SampleRate)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultFrameInterval
	}
	if opts.BitDepth == 0 {
		opts.BitDepth = DefaultBitDepth
	}
	if opts.History < p.FrameSize() {
		opts.History = historyFrames * p.FrameSize()
	}

	e := &Engine{
		opts:       opts,
		pipeline:   p,
		ring:       NewRingBuffer(opts.History),
		samples:    make([]float32, p.FrameSize()),
		block:      make([]byte, p.FrameSize()),
		commands:   make(chan command),
		latest:     make([]float32, p.Width()),
		transports: opts.Transports,
		done:       make(chan struct{}),
	}

	applog.Infof("Engine: N=%d, bins=%d, kept=%d, width=%d, interval=%s",
		p.FrameSize(), p.Bins(), p.Retained(), p.Width(), opts.Interval)
	return e, nil
}

// Write implements source.Sink. It is called from the capture or playback
// goroutine and never blocks on the frame loop.
func (e *Engine) Write(samples []float32) {
	e.ring.Write(samples)

	if e.isRecording.Load() {
		e.recordSamples(samples)
	}
}

// Run drives the frame clock until ctx is cancelled or the engine is closed.
// Only one Run may be active at a time.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine: already running")
	}
	defer e.running.Store(false)

	ticker := time.NewTicker(e.opts.Interval)
	defer ticker.Stop()

	applog.Debugf("Engine: Frame loop started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.done:
			return nil
		case cmd := <-e.commands:
			cmd.reply <- e.execute(cmd.kind)
		case <-ticker.C:
			e.processFrame()
		}
	}
}

func (e *Engine) execute(kind commandKind) bool {
	switch kind {
	case cmdTogglePause:
		paused := e.pipeline.TogglePause()
		e.paused.Store(paused)
		applog.Infof("Engine: Paused=%t", paused)
		return paused
	case cmdReset:
		e.ring.Clear()
		e.pipeline.Reset()
		e.paused.Store(false)
		e.sentPaused = false
		e.mu.Lock()
		clear(e.latest)
		e.mu.Unlock()
		applog.Infof("Engine: Reset")
		return false
	}
	return false
}

// processFrame runs one pipeline frame over the newest samples.
// Performance Critical:
//   - Uses pre-allocated buffers only
//   - Transports are called with a fresh copy since they may queue it
func (e *Engine) processFrame() {
	n := e.ring.Latest(e.samples)
	m := source.EncodeBytes(e.block, e.samples[:n])
	out := e.pipeline.ProcessFrame(e.block[:m])
	paused := e.pipeline.Paused()

	e.mu.Lock()
	for i, v := range out {
		e.latest[i] = float32(v)
	}
	e.seq++
	seq := e.seq
	e.mu.Unlock()
	e.paused.Store(paused)

	// A paused output is frozen; publish it once.
	if paused && e.sentPaused {
		return
	}
	e.sentPaused = paused
	e.publish(seq, paused)
}

func (e *Engine) publish(seq uint64, paused bool) {
	if len(e.transports) == 0 {
		return
	}

	frame := transport.Frame{Seq: seq, Paused: paused, Magnitudes: make([]float32, len(e.latest))}
	e.mu.RLock()
	copy(frame.Magnitudes, e.latest)
	e.mu.RUnlock()

	for _, t := range e.transports {
		if err := t.Send(frame); err != nil {
			applog.Debugf("Engine: Transport send failed: %v", err)
		}
	}
}

// TogglePause flips the pause state on the frame goroutine and returns the
// new state. It blocks until Run picks up the request.
func (e *Engine) TogglePause(ctx context.Context) (bool, error) {
	return e.send(ctx, cmdTogglePause)
}

// Reset clears buffered samples and the output, and unpauses.
func (e *Engine) Reset(ctx context.Context) error {
	_, err := e.send(ctx, cmdReset)
	return err
}

func (e *Engine) send(ctx context.Context, kind commandKind) (bool, error) {
	cmd := command{kind: kind, reply: make(chan bool, 1)}
	select {
	case e.commands <- cmd:
	case <-e.done:
		return false, ErrEngineClosed
	case <-ctx.Done():
		return false, ctx.Err()
	}
	return <-cmd.reply, nil
}

// Paused reports the pause state as of the last frame or command.
func (e *Engine) Paused() bool { return e.paused.Load() }

// Width returns the output buffer length.
func (e *Engine) Width() int { return len(e.latest) }

// FrameSize returns the number of samples per frame.
func (e *Engine) FrameSize() int { return len(e.samples) }

// LatestInto copies the most recent output into dst and returns its frame
// sequence number. dst must have length Width.
func (e *Engine) LatestInto(dst []float32) (uint64, error) {
	select {
	case <-e.done:
		return 0, ErrEngineClosed
	default:
	}
	if len(dst) != len(e.latest) {
		return 0, fmt.Errorf("destination slice length %d does not match output width %d", len(dst), len(e.latest))
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	copy(dst, e.latest)
	return e.seq, nil
}

// Close stops the frame loop, finishes any recording and closes transports.
func (e *Engine) Close() error {
	var errs []error
	e.closeOnce.Do(func() {
		close(e.done)

		if err := e.StopRecording(); err != nil {
			errs = append(errs, err)
		}
		for _, t := range e.transports {
			if err := t.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		e.mu.RLock()
		frames := e.seq
		e.mu.RUnlock()
		applog.Infof("Engine: Closed after %d frames", frames)
	})
	return errors.Join(errs...)
}

var (
	_ source.Sink             = (*Engine)(nil)
	_ transport.FrameProvider = (*Engine)(nil)
)
