// SPDX-License-Identifier: MIT
package analysis

// Source is the sample history an Analyzer reads from once per tick. The
// capture ring buffer satisfies it.
type Source interface {
	// Cap returns the number of samples Snapshot copies out.
	Cap() int
	// Snapshot copies the Cap most recent samples, oldest first, into dst.
	// It returns ringbuf.ErrNotFull while history is still being collected.
	Snapshot(dst []float32) error
}

// Config carries the per-tick analysis parameters, read from the live
// spectrum settings on every call.
type Config struct {
	TransformLength int            // FFT points, a power of two no larger than the source
	SamplingRate    float64        // Hz, used to place bins on the frequency axis
	LowerFrequency  float64        // Hz, inclusive
	UpperFrequency  float64        // Hz, inclusive
	Window          WindowFunction // weighting applied before the FFT
}
