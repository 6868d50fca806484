// SPDX-License-Identifier: MIT
package pipeline

// newPositions returns the left output index of each ranked position for k
// retained bins in an output of width m. Position 0 (weakest) lands on index
// 0, position k-1 (strongest) on the innermost index left of the axis.
//
// A positive step is used as is when k positions fit in the left half,
// otherwise the positions are spread evenly. A single retained bin goes next
// to the axis.
func newPositions(k, m, step int) []int {
	positions := make([]int, k)
	half := m / 2
	if k == 0 || half == 0 {
		return positions
	}

	inner := half - 1
	switch {
	case k == 1:
		positions[0] = inner
	case step > 0 && (k-1)*step <= inner:
		for p := range positions {
			positions[p] = p * step
		}
	default:
		for p := range positions {
			positions[p] = p * inner / (k - 1)
		}
	}
	return positions
}

// remap lays the ascending ranked bins into out with mirror symmetry about
// the midpoint: out[i] == out[len(out)-1-i] for every i.
//
// Indices between two written positions are linearly interpolated. Indices
// before the first position keep zero. The center index (odd width) or the
// two center indices (even width) take the largest magnitude, and any gap
// between the last position and the center is interpolated toward it.
func remap(out []float64, ranked []WeightedBin, positions []int) {
	clear(out)

	m := len(out)
	k := len(ranked)
	if m == 0 || k == 0 {
		return
	}

	peak := clamp01(ranked[k-1].Magnitude)
	if m == 1 {
		out[0] = peak
		return
	}

	prev := -1
	var prevVal float64
	for p, bin := range ranked {
		left := positions[p]
		v := clamp01(bin.Magnitude)
		if prev >= 0 {
			fillGap(out, prev, left, prevVal, v)
		}
		out[left] = v
		out[m-1-left] = v
		prev, prevVal = left, v
	}

	lo, hi := (m-1)/2, m/2
	fillGap(out, prev, lo, prevVal, peak)
	out[lo] = peak
	out[hi] = peak
}

// fillGap writes the linear interpolation between a at index from and b at
// index to into the indices strictly between them, mirrored.
func fillGap(out []float64, from, to int, a, b float64) {
	span := to - from
	if span < 2 {
		return
	}
	m := len(out)
	for j := from + 1; j < to; j++ {
		t := float64(j-from) / float64(span)
		v := a + (b-a)*t
		out[j] = v
		out[m-1-j] = v
	}
}
