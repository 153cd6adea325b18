// SPDX-License-Identifier: MIT
package transport

import (
	"audiowheel/internal/log"
	"audiowheel/internal/visualizer"
)

// LoggingScene logs a one-line summary of every frame at debug level.
type LoggingScene struct {
	frames uint64
}

// NewLoggingScene creates a new LoggingScene instance.
func NewLoggingScene() *LoggingScene {
	log.Infof("Transport: logging frames")
	return &LoggingScene{}
}

// Apply logs the frame. It never fails.
func (ls *LoggingScene) Apply(frame visualizer.Frame) error {
	ls.frames++
	highlighted := 0
	for _, c := range frame.Columns {
		if c.Highlighted {
			highlighted++
		}
	}
	log.Debugf("Frame %d: %d columns (%d highlighted), avg %.3f, peak %.1f Hz, rotation %.3f",
		frame.Sequence, len(frame.Columns), highlighted, frame.Average, frame.Peak.Frequency, frame.Rotation)
	return nil
}

// Restructure logs the new layout.
func (ls *LoggingScene) Restructure(columnCount int, columnWidth float64) error {
	log.Infof("Transport: restructure to %d columns of width %g", columnCount, columnWidth)
	return nil
}

// Frames returns the number of frames applied.
func (ls *LoggingScene) Frames() uint64 { return ls.frames }

// Close logs the frame count.
func (ls *LoggingScene) Close() error {
	log.Infof("Transport: logged %d frames", ls.frames)
	return nil
}

// Ensure LoggingScene satisfies the interface at compile time.
var _ Scene = (*LoggingScene)(nil)
