// SPDX-License-Identifier: MIT
package audio

import "math"

// Scale factors mapping full-scale integers onto [-1, 1).
const (
	int16Scale = 1.0 / float32(1<<15)
	int32Scale = 1.0 / float64(1<<31)
)

// Int16ToFloat32 converts src into dst and returns the filled part of dst.
func Int16ToFloat32(dst []float32, src []int16) []float32 {
	dst = grow(dst, len(src))
	for i, s := range src {
		dst[i] = float32(s) * int16Scale
	}
	return dst
}

// Int32ToFloat32 converts src into dst and returns the filled part of dst.
func Int32ToFloat32(dst []float32, src []int32) []float32 {
	dst = grow(dst, len(src))
	for i, s := range src {
		dst[i] = float32(float64(s) * int32Scale)
	}
	return dst
}

// IntToFloat32 converts PCM ints of the given source bit depth, as decoded
// from WAV files. 8-bit PCM is unsigned.
func IntToFloat32(dst []float32, src []int, bitDepth int) []float32 {
	dst = grow(dst, len(src))
	if bitDepth <= 0 || bitDepth > 32 {
		bitDepth = 16
	}
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, s := range src {
		dst[i] = float32(float64(s-offset) * scale)
	}
	return dst
}

// Float32ToInt converts samples to PCM ints of the given bit depth,
// clipping at full scale.
func Float32ToInt(dst []int, src []float32, bitDepth int) []int {
	if cap(dst) < len(src) {
		dst = make([]int, len(src))
	}
	dst = dst[:len(src)]
	full := float64(int64(1)<<(bitDepth-1)) - 1
	for i, s := range src {
		v := math.Round(float64(s) * full)
		dst[i] = int(min(max(v, -full-1), full))
	}
	return dst
}

// Downmix averages interleaved frames of the given channel count into mono.
// A trailing partial frame is dropped.
func Downmix(dst []float32, src []float32, channels int) []float32 {
	if channels <= 1 {
		dst = grow(dst, len(src))
		copy(dst, src)
		return dst
	}
	frames := len(src) / channels
	dst = grow(dst, frames)
	inv := 1 / float32(channels)
	for f := range frames {
		var sum float32
		for _, s := range src[f*channels : (f+1)*channels] {
			sum += s
		}
		dst[f] = sum * inv
	}
	return dst
}

func grow(dst []float32, n int) []float32 {
	if cap(dst) < n {
		return make([]float32, n)
	}
	return dst[:n]
}
