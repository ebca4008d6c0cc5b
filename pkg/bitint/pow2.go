// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used when sizing FFTs and
device buffers.

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two map to themselves:

	size 8: 8-1 = 0111, bits.Len = 3, 1<<3 = 8
	size 9: 9-1 = 1000, bits.Len = 4, 1<<4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size, and 1 for
// non-positive input.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo checks if n is a power of 2. Powers of two have a single bit
// set, so n & (n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
