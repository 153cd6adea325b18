// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math/cmplx"

	"audiowheel/internal/log"
	"audiowheel/internal/ringbuf"
	"audiowheel/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

var (
	// ErrNotEnoughData means the source has not filled yet. The tick is
	// skipped and retried on the next one.
	ErrNotEnoughData = errors.New("not enough data")

	// ErrTransformLength means the configured transform length cannot be
	// drawn from the source. It is a configuration defect, not a transient.
	ErrTransformLength = errors.New("invalid transform length")
)

// Pre-allocated buffers for one analysis pass.
type fftWorkspace struct {
	snapshot  []float32    // Copy of the source, taken under its lock.
	input     []float64    // Windowed transform input.
	fftOutput []complex128 // FFT complex results, N/2+1 values.
	window    []float64    // Pre-calculated window coefficients.
	bins      []Bin        // Range-limited output, reused every tick.
}

// Analyzer turns the sample history into a normalized, range-limited
// Spectrum. It is owned by the tick loop and is not safe for concurrent use.
type Analyzer struct {
	fftCalculator *fourier.FFT
	fftSize       int
	windowType    WindowFunction
	workspace     fftWorkspace
	spectrum      Spectrum
}

// NewAnalyzer creates an analyzer for a source holding capacity samples.
// The FFT itself is planned lazily on the first Analyze call.
func NewAnalyzer(capacity int) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(capacity) {
		return nil, fmt.Errorf("analysis buffer size must be a power of 2, got %d", capacity)
	}
	return &Analyzer{
		windowType: -1,
		workspace: fftWorkspace{
			snapshot: make([]float32, capacity),
		},
	}, nil
}

// configure re-plans the FFT when the transform length or window changes.
func (a *Analyzer) configure(cfg Config) error {
	capacity := len(a.workspace.snapshot)
	if !bitint.IsPowerOfTwo(cfg.TransformLength) || cfg.TransformLength > capacity {
		return fmt.Errorf("%w: %d (buffer holds %d samples)", ErrTransformLength, cfg.TransformLength, capacity)
	}
	if cfg.SamplingRate <= 0 {
		return fmt.Errorf("sampling rate must be positive, got %f", cfg.SamplingRate)
	}

	if cfg.TransformLength != a.fftSize {
		n := cfg.TransformLength
		log.Debugf("Analysis: planning FFT (Size: %d, Buffer: %d)", n, capacity)
		a.fftCalculator = fourier.NewFFT(n)
		a.fftSize = n
		a.workspace.input = make([]float64, n)
		a.workspace.fftOutput = make([]complex128, n/2+1)
		a.workspace.window = make([]float64, n)
		a.workspace.bins = make([]Bin, 0, n/2+1)
		a.windowType = -1
	}
	if cfg.Window != a.windowType {
		windowCoefficients(a.workspace.window, cfg.Window)
		a.windowType = cfg.Window
	}
	return nil
}

// Analyze snapshots src and returns the spectrum of its most recent
// TransformLength samples, restricted to [LowerFrequency, UpperFrequency]
// and min-max scaled to [0, 1].
//
// The returned Spectrum is owned by the analyzer and valid until the next
// call. ErrNotEnoughData is returned while src is still filling.
func (a *Analyzer) Analyze(src Source, cfg Config) (*Spectrum, error) {
	if src.Cap() != len(a.workspace.snapshot) {
		return nil, fmt.Errorf("%w: source holds %d samples, analyzer expects %d",
			ErrTransformLength, src.Cap(), len(a.workspace.snapshot))
	}
	if err := a.configure(cfg); err != nil {
		return nil, err
	}

	// The source lock is held only for the copy.
	if err := src.Snapshot(a.workspace.snapshot); err != nil {
		if errors.Is(err, ringbuf.ErrNotFull) {
			return nil, ErrNotEnoughData
		}
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	offset := len(a.workspace.snapshot) - a.fftSize
	for i := range a.fftSize {
		a.workspace.input[i] = float64(a.workspace.snapshot[offset+i]) * a.workspace.window[i]
	}

	a.fftCalculator.Coefficients(a.workspace.fftOutput, a.workspace.input)

	bins := a.workspace.bins[:0]
	for k, c := range a.workspace.fftOutput {
		f := a.FrequencyForBin(k, cfg.SamplingRate)
		if f < cfg.LowerFrequency {
			continue
		}
		if f > cfg.UpperFrequency {
			break
		}
		bins = append(bins, Bin{Frequency: f, Magnitude: cmplx.Abs(c)})
	}
	scaleToUnit(bins)

	a.workspace.bins = bins
	a.spectrum.Bins = bins
	a.spectrum.summarize()
	return &a.spectrum, nil
}

// FrequencyForBin returns the center frequency (Hz) of FFT bin k at the
// given sampling rate, using the currently planned transform length.
func (a *Analyzer) FrequencyForBin(k int, samplingRate float64) float64 {
	if a.fftSize == 0 {
		return 0
	}
	return float64(k) * samplingRate / float64(a.fftSize)
}

// TransformLength returns the currently planned FFT size, 0 before the first
// successful Analyze.
func (a *Analyzer) TransformLength() int {
	return a.fftSize
}

// scaleToUnit applies min-max scaling in place. A flat set maps to zero.
func scaleToUnit(bins []Bin) {
	if len(bins) == 0 {
		return
	}
	lo, hi := bins[0].Magnitude, bins[0].Magnitude
	for _, b := range bins[1:] {
		lo = min(lo, b.Magnitude)
		hi = max(hi, b.Magnitude)
	}
	span := hi - lo
	for i := range bins {
		if span > 0 {
			bins[i].Magnitude = (bins[i].Magnitude - lo) / span
		} else {
			bins[i].Magnitude = 0
		}
	}
}
