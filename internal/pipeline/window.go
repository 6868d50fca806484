// SPDX-License-Identifier: MIT
package pipeline

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// Windowing selects how raw samples are conditioned before the transform.
type Windowing int

const (
	// Windowed multiplies each normalized sample by a window coefficient.
	Windowed Windowing = iota
	// RawNormalized skips the window and applies a flat amplification.
	RawNormalized
)

// String returns the configuration name of the windowing mode.
func (w Windowing) String() string {
	switch w {
	case Windowed:
		return "windowed"
	case RawNormalized:
		return "raw"
	default:
		return "unknown"
	}
}

// ParseWindowing converts a configuration name (case-insensitive) to a
// Windowing mode. Returns Windowed and an error if the name is unknown.
func ParseWindowing(name string) (Windowing, error) {
	switch strings.ToLower(name) {
	case "", "windowed":
		return Windowed, nil
	case "raw", "raw-normalized", "rawnormalized":
		return RawNormalized, nil
	default:
		return Windowed, fmt.Errorf("%w: unknown windowing mode '%s'", ErrConfig, name)
	}
}

// newGain builds the per-sample multiplier applied after normalization:
// window coefficients in Windowed mode, a constant in RawNormalized mode.
func newGain(opts Options, n int) ([]float64, error) {
	gain := make([]float64, n)

	switch opts.Windowing {
	case RawNormalized:
		amp := opts.Amplification
		if amp == 0 {
			amp = DefaultAmplification
		}
		for i := range gain {
			gain[i] = amp
		}
		return gain, nil
	case Windowed:
		return gain, fillWindow(gain, opts.Window)
	default:
		return nil, fmt.Errorf("%w: unknown windowing mode %d", ErrConfig, opts.Windowing)
	}
}

// fillWindow writes the named window into coeffs. Hann uses the periodic form
// 0.5*(1-cos(2πi/N)); the others come from gonum and are symmetric.
func fillWindow(coeffs []float64, name string) error {
	n := float64(len(coeffs))

	switch strings.ToLower(name) {
	case "", "hann", "hanning":
		for i := range coeffs {
			coeffs[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/n))
		}
		return nil
	}

	// gonum window functions scale the slice in place.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch strings.ToLower(name) {
	case "bartletthann":
		window.BartlettHann(coeffs)
	case "blackman":
		window.Blackman(coeffs)
	case "blackmannuttall":
		window.BlackmanNuttall(coeffs)
	case "hamming":
		window.Hamming(coeffs)
	case "lanczos":
		window.Lanczos(coeffs)
	case "nuttall":
		window.Nuttall(coeffs)
	default:
		return fmt.Errorf("%w: unknown window function name '%s'", ErrWindow, name)
	}
	return nil
}

// applyWindow fills the windowed workspace from a raw block. Index i beyond
// the block is silence; bytes past N are ignored.
func (p *Pipeline) applyWindow(samples []byte) {
	in := p.workspace.windowed
	n := min(len(samples), len(in))

	for i := range n {
		in[i] = (float64(samples[i])/128.0 - 1.0) * p.gain[i]
	}
	for i := n; i < len(in); i++ {
		in[i] = 0
	}
}
