// SPDX-License-Identifier: MIT
package pipeline

import (
	"cmp"
	"slices"
)

// selectSalient sorts bins by descending magnitude, keeps the first k and
// returns them in ascending order. The returned slice aliases bins.
//
// Ties are broken by lower original index first, so the ordering is fully
// determined by the input.
func selectSalient(bins []WeightedBin, k int) []WeightedBin {
	slices.SortFunc(bins, byMagnitudeDesc)

	kept := bins[:k]
	slices.Reverse(kept)
	return kept
}

func byMagnitudeDesc(a, b WeightedBin) int {
	if c := cmp.Compare(b.Magnitude, a.Magnitude); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}
