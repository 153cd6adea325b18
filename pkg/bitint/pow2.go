// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used to size sample
buffers, FFT transforms and column rings.

Every size in the display pipeline is a power of two: the ring buffer
capacity, the transform length and the column count (which is stored as an
exponent and recomputed from it). These helpers keep those invariants in
one place.

Usage:

	// Column count from the stored exponent
	columns := bitint.Pow2(8) // 256

	// Validate a transform length
	ok := bitint.IsPowerOfTwo(4096)
*/
package bitint

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// Powers of two have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Pow2 returns 2 raised to exp. Negative exponents return 1.
func Pow2(exp int) int {
	if exp <= 0 {
		return 1
	}
	return 1 << exp
}
