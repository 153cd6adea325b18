// SPDX-License-Identifier: MIT
package visualizer

import (
	"audiowheel/internal/analysis"
	"audiowheel/internal/settings"
)

// Wheel combines the mapper, the radius and rotation motion, and the two
// color transitions into the per-tick frame. It also carries the latest
// spectrum average from the analysis step to the radius step.
type Wheel struct {
	mapper    Mapper
	motion    Motion
	normal    ColorTransition
	highlight ColorTransition

	sequence uint64
	average  float64
}

// Tick runs one scheduler firing. spectrum is nil when analysis skipped this
// tick; motion and colors still advance, but no frame is produced.
func (w *Wheel) Tick(spectrum *analysis.Spectrum, s *settings.Spectrum) (Frame, bool) {
	var columns []Column
	if spectrum != nil {
		w.average = spectrum.Average()
		columns = w.mapper.Map(spectrum, s)
	}

	delta := w.motion.Step(w.average, s)
	normal := w.normal.Step(s.Normal)
	highlight := w.highlight.Step(s.Highlight)

	if spectrum == nil {
		return Frame{}, false
	}

	w.sequence++
	return Frame{
		Sequence:       w.sequence,
		Columns:        columns,
		RotationDelta:  delta,
		Rotation:       w.motion.Rotation(),
		Offsets:        w.motion.Offsets(),
		Positions:      w.motion.Positions(),
		NormalColor:    normal,
		HighlightColor: highlight,
		Average:        w.average,
		Peak:           spectrum.Max(),
	}, true
}

// LatestAverage returns the spectrum average recorded by the last analyzed
// tick.
func (w *Wheel) LatestAverage() float64 { return w.average }
