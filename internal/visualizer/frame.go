// SPDX-License-Identifier: MIT
package visualizer

import (
	"slices"
	"time"

	"audiowheel/internal/analysis"
)

// Frame is everything a scene needs to draw one tick of the wheel. Slices
// are shared with the producer; a scene that keeps a frame past Apply must
// Clone it.
type Frame struct {
	Sequence       uint64       `json:"seq"`
	Timestamp      time.Time    `json:"ts"`
	Columns        []Column     `json:"columns"`
	RotationDelta  float64      `json:"rotationDelta"`
	Rotation       float64      `json:"rotation"`
	Offsets        []float64    `json:"offsets"`
	Positions      []Point      `json:"positions"`
	NormalColor    RGB          `json:"normalColor"`
	HighlightColor RGB          `json:"highlightColor"`
	Average        float64      `json:"average"`
	Peak           analysis.Bin `json:"peak"`
}

// Clone returns a deep copy of f.
func (f Frame) Clone() Frame {
	f.Columns = slices.Clone(f.Columns)
	f.Offsets = slices.Clone(f.Offsets)
	f.Positions = slices.Clone(f.Positions)
	return f
}

// ColorOf returns the color a column is drawn with in this frame.
func (f *Frame) ColorOf(c Column) RGB {
	if c.Highlighted {
		return f.HighlightColor
	}
	return f.NormalColor
}

// Scene draws frames. Apply is called once per tick that produced columns;
// Restructure is called before the first frame with a new column count or
// width so the scene can rebuild its column identities.
type Scene interface {
	Apply(frame Frame) error
	Restructure(columnCount int, columnWidth float64) error
}
