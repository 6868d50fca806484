// SPDX-License-Identifier: MIT
package pipeline

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// WeightedBin is one frequency bin: its original index in [0, N/2) and its
// (possibly weighted) magnitude.
type WeightedBin struct {
	Index     int
	Magnitude float64
}

// MagnitudeMode selects how a coefficient's modulus becomes a magnitude.
type MagnitudeMode int

const (
	// MagnitudeScaled is sqrt(|c|) / Divisor.
	MagnitudeScaled MagnitudeMode = iota
	// MagnitudeRMS is sqrt(|c| / N).
	MagnitudeRMS
	// MagnitudeLoudness is the RMS magnitude compressed with 1+2*log10(m),
	// clamped to [0, 1].
	MagnitudeLoudness
)

// String returns the configuration name of the magnitude mode.
func (m MagnitudeMode) String() string {
	switch m {
	case MagnitudeScaled:
		return "scaled"
	case MagnitudeRMS:
		return "rms"
	case MagnitudeLoudness:
		return "loudness"
	default:
		return "unknown"
	}
}

// ParseMagnitudeMode converts a configuration name (case-insensitive) to a
// MagnitudeMode. Returns MagnitudeScaled and an error if the name is unknown.
func ParseMagnitudeMode(name string) (MagnitudeMode, error) {
	switch strings.ToLower(name) {
	case "", "scaled":
		return MagnitudeScaled, nil
	case "rms":
		return MagnitudeRMS, nil
	case "loudness", "log":
		return MagnitudeLoudness, nil
	default:
		return MagnitudeScaled, fmt.Errorf("%w: unknown magnitude mode '%s'", ErrConfig, name)
	}
}

type magnitudeFunc func(modulus float64) float64

func newMagnitudeFunc(opts Options, n int) (magnitudeFunc, error) {
	size := float64(n)

	switch opts.Magnitude {
	case MagnitudeScaled:
		divisor := opts.Divisor
		if divisor == 0 {
			divisor = DefaultDivisor
		}
		return func(modulus float64) float64 {
			return math.Sqrt(modulus) / divisor
		}, nil
	case MagnitudeRMS:
		return func(modulus float64) float64 {
			return math.Sqrt(modulus / size)
		}, nil
	case MagnitudeLoudness:
		return func(modulus float64) float64 {
			return loudness(math.Sqrt(modulus / size))
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown magnitude mode %d", ErrConfig, opts.Magnitude)
	}
}

// loudness applies logarithmic compression. Non-positive and non-finite input
// maps to 0 so the log never produces -Inf or NaN.
func loudness(m float64) float64 {
	if !(m > 0) || math.IsInf(m, 0) {
		return 0
	}
	return clamp01(1 + math.Log10(m)*2)
}

// extractMagnitudes fills the bin workspace from the first N/2 coefficients,
// resetting each bin's original index.
func (p *Pipeline) extractMagnitudes() {
	coeffs := p.workspace.coeffs
	bins := p.workspace.bins

	for i := range bins {
		bins[i] = WeightedBin{
			Index:     i,
			Magnitude: p.magnitude(cmplx.Abs(coeffs[i])),
		}
	}
}
