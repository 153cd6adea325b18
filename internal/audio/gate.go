// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// Gate silences chunks whose peak stays below a threshold, so line noise
// does not animate the wheel. The threshold may be changed from any
// goroutine while the capture callback reads it.
type Gate struct {
	enabled   atomic.Bool
	threshold atomic.Uint32 // float32 bits
}

func (g *Gate) Enable() {
	g.enabled.Store(true)
}

func (g *Gate) Disable() {
	g.enabled.Store(false)
}

// Enabled reports whether the gate is active.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// SetThreshold adjusts the gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold.Store(math.Float32bits(float32(threshold)))
}

// Threshold returns the current gate threshold.
func (g *Gate) Threshold() float64 {
	return float64(math.Float32frombits(g.threshold.Load()))
}

// Apply zeroes chunk in place when the gate is enabled and the chunk's peak
// is below the threshold. It reports whether the chunk passed.
func (g *Gate) Apply(chunk []float32) bool {
	if !g.enabled.Load() {
		return true
	}
	threshold := g.threshold.Load()
	if threshold == 0 || peakBits(chunk) >= threshold {
		return true
	}
	clear(chunk)
	return false
}

// peakBits returns the bit pattern of the largest absolute sample. For
// non-negative IEEE floats the bit patterns order the same way as the values,
// so clearing the sign bit gives a branch-free absolute value.
func peakBits(chunk []float32) uint32 {
	var peak uint32
	for _, s := range chunk {
		peak = max(peak, math.Float32bits(s)&0x7fffffff)
	}
	return peak
}
