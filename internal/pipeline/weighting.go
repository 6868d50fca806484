// SPDX-License-Identifier: MIT
package pipeline

import (
	"fmt"
	"math"
	"strings"
)

// Profile selects the perceptual weighting curve.
type Profile int

const (
	// ProfileFull weights bin i of B by 1-(i/B)^0.5.
	ProfileFull Profile = iota
	// ProfileReduced weights by 1-(i/B)^0.4, suppressing highs harder, for
	// constrained devices.
	ProfileReduced
)

const (
	fullExponent    = 0.5
	reducedExponent = 0.4
)

// String returns the configuration name of the profile.
func (p Profile) String() string {
	switch p {
	case ProfileFull:
		return "full"
	case ProfileReduced:
		return "reduced"
	default:
		return "unknown"
	}
}

// ParseProfile converts a configuration name (case-insensitive) to a Profile.
// Returns ProfileFull and an error if the name is unknown.
func ParseProfile(name string) (Profile, error) {
	switch strings.ToLower(name) {
	case "", "full":
		return ProfileFull, nil
	case "reduced":
		return ProfileReduced, nil
	default:
		return ProfileFull, fmt.Errorf("%w: unknown profile '%s'", ErrConfig, name)
	}
}

func (p Profile) exponent() (float64, error) {
	switch p {
	case ProfileFull:
		return fullExponent, nil
	case ProfileReduced:
		return reducedExponent, nil
	default:
		return 0, fmt.Errorf("%w: unknown profile %d", ErrConfig, p)
	}
}

// newWeights pre-computes 1-(i/b)^exponent for every bin.
func newWeights(b int, exponent float64) []float64 {
	weights := make([]float64, b)
	for i := range weights {
		weights[i] = 1 - math.Pow(float64(i)/float64(b), exponent)
	}
	return weights
}

// applyWeights scales each bin in place by the weight of its position. It
// runs before selection, so position and original index coincide.
func applyWeights(bins []WeightedBin, weights []float64) {
	for i := range bins {
		bins[i].Magnitude *= weights[i]
	}
}
