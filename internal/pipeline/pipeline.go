// SPDX-License-Identifier: MIT
/*
Package pipeline turns one block of byte-encoded audio samples into a fixed
length array of normalized visual magnitudes, once per display frame.

Stages, in order:
  - Windowing: bytes to [-1, 1], Hann window (or flat gain in raw mode)
  - Transform: real-input FFT of size N
  - Magnitude: modulus of the first N/2 coefficients, scaled
  - Weighting: 1-(i/B)^p attenuation of higher bins
  - Selection: keep the ceil(B*r) strongest bins, ascending
  - Remap: mirrored layout, weakest at the edges, strongest at the center

Thread Safety:
  - A Pipeline is owned by a single goroutine; ProcessFrame and TogglePause
    must never be called concurrently
  - All per-frame buffers are allocated once in New and overwritten in place
*/
package pipeline

import (
	"errors"
	"fmt"
	"math"
	"time"

	"visualizer/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Frame and layout limits.
const (
	DefaultFrameSize     = 1024 // N, samples per frame
	DefaultOutputWidth   = 512  // M, twice the bin count for N=1024
	DefaultRetention     = 0.25 // r, fraction of bins kept
	DefaultDivisor       = 32.0 // Scaled magnitude divisor
	DefaultAmplification = 1.2  // Flat gain in raw-normalized mode
	MinFrameSize         = 16
	MaxFrameSize         = 32768
)

var (
	// ErrConfig is wrapped by every error returned from New.
	ErrConfig = errors.New("pipeline: invalid configuration")

	ErrFrameSize   = fmt.Errorf("%w: frame size", ErrConfig)
	ErrOutputWidth = fmt.Errorf("%w: output width", ErrConfig)
	ErrWindow      = fmt.Errorf("%w: window function", ErrConfig)
)

// Options configures a Pipeline. Start from DefaultOptions and override.
type Options struct {
	FrameSize     int           // N, a power of two in [MinFrameSize, MaxFrameSize]
	OutputWidth   int           // M, length of the output buffer
	Profile       Profile       // Weighting exponent selection
	Windowing     Windowing     // Windowed or raw-normalized input
	Window        string        // Window function name, Windowed mode only
	Magnitude     MagnitudeMode // Magnitude scaling
	Divisor       float64       // MagnitudeScaled divisor, 0 means DefaultDivisor
	Amplification float64       // RawNormalized gain, 0 means DefaultAmplification
	Retention     float64       // Fraction of bins kept, clamped to [0, 1]
	Step          int           // Remap step, 0 spreads retained bins evenly
	Observer      Observer      // Optional per-frame hook
}

// DefaultOptions returns the canonical configuration: N=1024, M=512, full
// profile, Hann window, scaled magnitudes and a quarter of the bins kept.
func DefaultOptions() Options {
	return Options{
		FrameSize:     DefaultFrameSize,
		OutputWidth:   DefaultOutputWidth,
		Profile:       ProfileFull,
		Windowing:     Windowed,
		Window:        "hann",
		Magnitude:     MagnitudeScaled,
		Divisor:       DefaultDivisor,
		Amplification: DefaultAmplification,
		Retention:     DefaultRetention,
	}
}

// State is the only data that survives between frames.
type State struct {
	paused bool
	output []float64
}

// Paused reports whether frame updates are currently skipped.
func (s *State) Paused() bool { return s.paused }

// workspace holds the frame-scoped buffers, reused every frame.
type workspace struct {
	windowed []float64     // N windowed samples
	coeffs   []complex128  // N/2+1 FFT coefficients
	bins     []WeightedBin // N/2 weighted bins, sorted in place
}

// Pipeline is the audio-to-visualization transform plus its owned State.
type Pipeline struct {
	frameSize int
	numBins   int
	width     int
	retained  int

	gain      []float64 // Per-sample window coefficient or flat gain
	weights   []float64 // Per-bin perceptual weight
	positions []int     // Left output index for each ranked position
	magnitude magnitudeFunc

	fft       *fourier.FFT
	workspace workspace
	state     State

	observer Observer
	frames   uint64
}

// New validates opts and pre-allocates every buffer the pipeline needs. The
// returned error wraps ErrConfig.
func New(opts Options) (*Pipeline, error) {
	n := opts.FrameSize
	if n < MinFrameSize || n > MaxFrameSize || !bitint.IsPowerOfTwo(n) {
		return nil, fmt.Errorf("%w: must be a power of 2 in [%d, %d], got %d",
			ErrFrameSize, MinFrameSize, MaxFrameSize, n)
	}
	if opts.OutputWidth <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrOutputWidth, opts.OutputWidth)
	}
	if opts.Divisor < 0 || opts.Amplification < 0 {
		return nil, fmt.Errorf("%w: divisor and amplification must not be negative", ErrConfig)
	}

	gain, err := newGain(opts, n)
	if err != nil {
		return nil, err
	}
	magnitude, err := newMagnitudeFunc(opts, n)
	if err != nil {
		return nil, err
	}
	exponent, err := opts.Profile.exponent()
	if err != nil {
		return nil, err
	}

	numBins := n / 2
	retained := retainCount(numBins, opts.Retention)

	return &Pipeline{
		frameSize: n,
		numBins:   numBins,
		width:     opts.OutputWidth,
		retained:  retained,
		gain:      gain,
		weights:   newWeights(numBins, exponent),
		positions: newPositions(retained, opts.OutputWidth, opts.Step),
		magnitude: magnitude,
		fft:       fourier.NewFFT(n),
		workspace: workspace{
			windowed: make([]float64, n),
			coeffs:   make([]complex128, n/2+1),
			bins:     make([]WeightedBin, numBins),
		},
		state: State{
			output: make([]float64, opts.OutputWidth),
		},
		observer: opts.Observer,
	}, nil
}

// ProcessFrame runs one frame through every stage and returns the output
// buffer. Blocks of any length are accepted: short blocks are padded with
// silence, long blocks truncated. While paused no work is done and the last
// output is returned unchanged.
//
// The returned slice is owned by the pipeline. Callers must not modify it and
// must copy it (OutputInto, Float32Into) if it is needed after the next call.
func (p *Pipeline) ProcessFrame(samples []byte) []float64 {
	if p.state.paused {
		return p.state.output
	}

	var start time.Time
	if p.observer != nil {
		start = time.Now()
	}

	p.applyWindow(samples)
	p.transform()
	p.extractMagnitudes()
	applyWeights(p.workspace.bins, p.weights)
	ranked := selectSalient(p.workspace.bins, p.retained)
	remap(p.state.output, ranked, p.positions)

	p.frames++
	if p.observer != nil {
		stats := FrameStats{
			Sequence: p.frames,
			Retained: len(ranked),
			PeakBin:  -1,
			Duration: time.Since(start),
		}
		if len(ranked) > 0 {
			top := ranked[len(ranked)-1]
			stats.PeakBin = top.Index
			stats.Peak = clamp01(top.Magnitude)
		}
		p.observer.ObserveFrame(stats)
	}

	return p.state.output
}

// TogglePause flips the paused state and returns the new value.
func (p *Pipeline) TogglePause() bool {
	p.state.paused = !p.state.paused
	return p.state.paused
}

// Paused reports whether frame updates are currently skipped.
func (p *Pipeline) Paused() bool { return p.state.Paused() }

// Reset returns the pipeline to its freshly constructed state: output zeroed,
// not paused, frame counter cleared.
func (p *Pipeline) Reset() {
	clear(p.state.output)
	p.state.paused = false
	p.frames = 0
}

// Output returns the current output buffer without processing a frame.
func (p *Pipeline) Output() []float64 { return p.state.output }

// OutputInto copies the current output into dst, which must have length Width.
func (p *Pipeline) OutputInto(dst []float64) error {
	if len(dst) != len(p.state.output) {
		return fmt.Errorf("destination slice length %d does not match output width %d", len(dst), len(p.state.output))
	}
	copy(dst, p.state.output)
	return nil
}

// Float32Into converts the current output into dst for upload into a float32
// display buffer. dst must have length Width.
func (p *Pipeline) Float32Into(dst []float32) error {
	if len(dst) != len(p.state.output) {
		return fmt.Errorf("destination slice length %d does not match output width %d", len(dst), len(p.state.output))
	}
	for i, v := range p.state.output {
		dst[i] = float32(v)
	}
	return nil
}

// FrameSize returns N.
func (p *Pipeline) FrameSize() int { return p.frameSize }

// Bins returns B, the number of usable frequency bins (N/2).
func (p *Pipeline) Bins() int { return p.numBins }

// Width returns M, the output buffer length.
func (p *Pipeline) Width() int { return p.width }

// Retained returns K, the number of bins kept by the selection stage.
func (p *Pipeline) Retained() int { return p.retained }

// Frames returns the number of frames processed (paused frames excluded).
func (p *Pipeline) Frames() uint64 { return p.frames }

// retainCount returns ceil(b*r) with r clamped to [0, 1].
func retainCount(b int, r float64) int {
	if math.IsNaN(r) || r <= 0 {
		return 0
	}
	if r >= 1 {
		return b
	}
	k := int(math.Ceil(float64(b) * r))
	return min(k, b)
}

func clamp01(v float64) float64 {
	if !(v > 0) { // also catches NaN
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
