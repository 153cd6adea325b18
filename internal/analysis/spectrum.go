// SPDX-License-Identifier: MIT
package analysis

import "gonum.org/v1/gonum/floats"

// Bin is one discrete frequency slot of a Spectrum.
type Bin struct {
	Frequency float64 `json:"frequency"`
	Magnitude float64 `json:"magnitude"`
}

// Spectrum is the range-limited, normalized output of one analysis tick.
// Bins are ordered by ascending frequency and every magnitude lies in [0, 1].
type Spectrum struct {
	Bins []Bin
	mean float64
	peak Bin
	mags []float64 // scratch for the statistics
}

// Len returns the number of bins in the spectrum.
func (s *Spectrum) Len() int { return len(s.Bins) }

// Average returns the arithmetic mean magnitude, 0 for an empty spectrum.
func (s *Spectrum) Average() float64 { return s.mean }

// Max returns the bin with the largest magnitude. The lowest frequency wins
// a tie. An empty spectrum returns the zero Bin.
func (s *Spectrum) Max() Bin { return s.peak }

// Magnitudes copies the bin magnitudes into dst, growing it when needed.
func (s *Spectrum) Magnitudes(dst []float64) []float64 {
	if cap(dst) < len(s.Bins) {
		dst = make([]float64, len(s.Bins))
	}
	dst = dst[:len(s.Bins)]
	for i, b := range s.Bins {
		dst[i] = b.Magnitude
	}
	return dst
}

// NewSpectrum builds a Spectrum from already normalized bins and computes
// its statistics. The slice is retained, not copied.
func NewSpectrum(bins []Bin) *Spectrum {
	s := &Spectrum{Bins: bins}
	s.summarize()
	return s
}

func (s *Spectrum) summarize() {
	s.mean = 0
	s.peak = Bin{}
	if len(s.Bins) == 0 {
		return
	}
	s.mags = s.Magnitudes(s.mags)
	s.mean = floats.Sum(s.mags) / float64(len(s.mags))
	s.peak = s.Bins[floats.MaxIdx(s.mags)]
}
