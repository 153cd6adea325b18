// SPDX-License-Identifier: MIT

// Package visualizer reduces a spectrum into the radial column wheel: column
// heights and highlight flags, radial offsets, rotation and the two column
// colors. Everything here runs on the tick loop only.
package visualizer

import (
	"math"

	"audiowheel/internal/analysis"
	"audiowheel/internal/settings"
)

// Column is the per-tick state of one bar of the wheel.
type Column struct {
	Index       int     `json:"index"`
	Value       float64 `json:"value"`
	Height      float64 `json:"height"`
	Highlighted bool    `json:"highlighted"`
}

// Mapper turns a spectrum into exactly ColumnCount columns. The output only
// depends on its inputs, so mapping the same spectrum twice gives the same
// columns. Buffers are reused between calls.
type Mapper struct {
	values  []float64
	columns []Column
}

// Map buckets, smooths and mirrors the spectrum, then derives heights and
// highlight flags. The returned slice is owned by the mapper and valid until
// the next call.
func (m *Mapper) Map(spectrum *analysis.Spectrum, s *settings.Spectrum) []Column {
	count := max(s.ColumnCount, 1)
	segment := min(s.SegmentWidth(), count)

	m.values = resize(m.values, segment)
	bucket(m.values, spectrum.Bins, count)
	smooth(m.values, s.SmoothingRange)

	m.columns = resizeColumns(m.columns, count)
	peak := spectrum.Max().Magnitude
	threshold := 2 * spectrum.Average()
	for i := range m.columns {
		// Sections after the first repeat the first one; for two sections
		// column i mirrors column i - count/2.
		v := m.values[i%segment]
		m.columns[i] = Column{
			Index:       i,
			Value:       v,
			Height:      columnHeight(v, s.MaxHeight, peak),
			Highlighted: v > threshold,
		}
	}
	return m.columns
}

// bucket fills values from bins laid out over count columns, of which
// only the first len(values) are kept. With at least count bins, bins are
// split into count contiguous ranges (the last absorbing the remainder) and
// each value is its range's sum divided by the range length. With fewer
// bins, each bin covers a run of consecutive columns, the earliest bins
// taking one extra column when the split is uneven.
func bucket(values []float64, bins []analysis.Bin, count int) {
	n, w := len(bins), len(values)
	if n == 0 {
		clear(values)
		return
	}
	count = max(count, w)

	if n >= count {
		size := n / count
		for j := range values {
			start := j * size
			end := start + size
			if j == count-1 {
				end = n
			}
			sum := 0.0
			for _, b := range bins[start:end] {
				sum += b.Magnitude
			}
			values[j] = sum / float64(end-start)
		}
		return
	}

	per, extra := count/n, count%n
	j := 0
	for i, b := range bins {
		run := per
		if i < extra {
			run++
		}
		for range run {
			if j == w {
				return
			}
			values[j] = b.Magnitude
			j++
		}
	}
}

// smooth replaces each value by the mean of a circular window of width r
// starting r/2 positions to its left. The sweep runs in index order and
// writes in place, so later windows read already smoothed neighbors.
func smooth(values []float64, r int) {
	w := len(values)
	if r <= 1 || w == 0 {
		return
	}
	r = min(r, w)
	for i := range values {
		idx := ((i-r/2)%w + w) % w
		sum := 0.0
		for range r {
			sum += values[idx]
			idx++
			if idx == w {
				idx = 0
			}
		}
		values[i] = sum / float64(r)
	}
}

// columnHeight scales a value against the spectrum peak. A NaN (silence
// divides zero by zero) maps to the minimum height of 1.
func columnHeight(value, maxHeight, peak float64) float64 {
	h := value * maxHeight / peak
	if math.IsNaN(h) {
		return 1
	}
	return min(max(h, 1), maxHeight)
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

func resizeColumns(s []Column, n int) []Column {
	if cap(s) < n {
		return make([]Column, n)
	}
	return s[:n]
}
