// SPDX-License-Identifier: MIT
package visualizer

import (
	"math"

	"audiowheel/internal/settings"
)

// Point is a column position relative to the wheel center.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Motion tracks the wheel's reactive radius and its rotation across ticks.
type Motion struct {
	offsets   []float64
	positions []Point
	rotation  float64
}

// Step eases every column's radial offset toward average*ScaleStrength by
// 1/ScaleThreshold of the remaining distance and advances the rotation by
// -RotationSpeed. It returns the rotation delta applied this tick.
//
// Columns added by a restructure start at offset zero.
func (m *Motion) Step(average float64, s *settings.Spectrum) float64 {
	count := max(s.ColumnCount, 1)
	m.resize(count)

	target := average * s.ScaleStrength
	threshold := s.ScaleThreshold
	if threshold <= 0 {
		threshold = 1
	}
	step := 2 * math.Pi / float64(count)
	for i := range m.offsets {
		m.offsets[i] += (target - m.offsets[i]) / threshold
		if math.IsNaN(m.offsets[i]) || math.IsInf(m.offsets[i], 0) {
			m.offsets[i] = 0
		}
		r := s.Radius + m.offsets[i]
		sin, cos := math.Sincos(float64(i) * step)
		m.positions[i] = Point{X: r * cos, Y: r * sin}
	}

	if s.RotationSpeed == 0 {
		return 0
	}
	delta := -s.RotationSpeed
	m.rotation = math.Mod(m.rotation+delta, 2*math.Pi)
	return delta
}

// Offsets returns the current radial offset per column.
func (m *Motion) Offsets() []float64 { return m.offsets }

// Positions returns the current position per column, unrotated.
func (m *Motion) Positions() []Point { return m.positions }

// Rotation returns the accumulated rotation in radians, in (-2π, 2π).
func (m *Motion) Rotation() float64 { return m.rotation }

func (m *Motion) resize(n int) {
	if len(m.offsets) == n {
		return
	}
	offsets := make([]float64, n)
	copy(offsets, m.offsets)
	m.offsets = offsets
	m.positions = make([]Point, n)
}
