// SPDX-License-Identifier: MIT
package pcm

import "math"

// FloatToInt16 quantizes one sample to signed 16-bit. Negative values scale
// by 32768 and non-negative values by 32767 so both ends of the range map
// exactly onto the int16 limits.
func FloatToInt16(s float32) int16 {
	v := float64(s)
	if v != v { // NaN
		return 0
	}
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	if v < 0 {
		return int16(math.Round(v * 32768))
	}
	return int16(math.Round(v * 32767))
}

// Int16ToFloat is the inverse mapping of FloatToInt16.
func Int16ToFloat(v int16) float32 {
	if v < 0 {
		return float32(float64(v) / 32768)
	}
	return float32(float64(v) / 32767)
}

// Quantize converts src into dst, which must be at least as long as src.
// It returns the number of samples written.
func Quantize(dst []int16, src []float32) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = FloatToInt16(src[i])
	}
	return n
}

// CubicInterpolate evaluates a Catmull-Rom spline through y0..y3 at x in
// [0, 1] between y1 and y2.
func CubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}

// SampleAt reads channel data at a fractional frame position using cubic
// interpolation. Neighbours outside the slice are clamped to its edges.
func SampleAt(data []float32, pos float64) float32 {
	n := len(data)
	if n == 0 || pos < 0 || pos >= float64(n) {
		return 0
	}
	i := int(pos)
	frac := float32(pos - float64(i))
	if frac == 0 {
		return data[i]
	}
	at := func(k int) float32 {
		if k < 0 {
			k = 0
		} else if k >= n {
			k = n - 1
		}
		return data[k]
	}
	return CubicInterpolate(at(i-1), at(i), at(i+1), at(i+2), frac)
}
