/*
Package bitint provides the power-of-2 helpers used for frame sizing.

Design Principles:
- Zero Allocations: All operations use stack memory only
- Predictable Performance: O(1) constant time operations

Usage:

	// Verify a frame size is valid for the FFT
	isValid := bitint.IsPowerOfTwo(frameSize)

	// Suggest the nearest valid frame size
	suggested := bitint.NextPowerOfTwo(1000) // Returns 1024
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size. Sizes below 1 map to 1.
//
// The subtraction (size-1) keeps exact powers of 2 unchanged:
//
//	Input  Output
//	4      4
//	5      8
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of 2 <= size, or 0 for sizes
// below 1.
func PrevPowerOfTwo(size int) int {
	if size < 1 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo checks if n is a power of 2. Powers of 2 have exactly one
// bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
