// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunction selects the weighting applied to a snapshot before the FFT.
type WindowFunction int

// Available window functions. The zero value is no windowing.
const (
	WindowNone WindowFunction = iota
	WindowHann
	WindowHamming
)

// String returns the canonical name used in config files and the settings API.
func (w WindowFunction) String() string {
	switch w {
	case WindowNone:
		return "none"
	case WindowHann:
		return "hann"
	case WindowHamming:
		return "hamming"
	default:
		return fmt.Sprintf("WindowFunction(%d)", int(w))
	}
}

// ParseWindowFunction converts a name (case-insensitive) to a WindowFunction.
// Unknown names return WindowNone and an error.
func ParseWindowFunction(name string) (WindowFunction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "rectangular":
		return WindowNone, nil
	case "hann", "hanning":
		return WindowHann, nil
	case "hamming":
		return WindowHamming, nil
	default:
		return WindowNone, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// MarshalText implements encoding.TextMarshaler for YAML and JSON.
func (w WindowFunction) MarshalText() ([]byte, error) {
	switch w {
	case WindowNone, WindowHann, WindowHamming:
		return []byte(w.String()), nil
	}
	return nil, fmt.Errorf("invalid window function %d", int(w))
}

// UnmarshalText implements encoding.TextUnmarshaler for YAML and JSON.
func (w *WindowFunction) UnmarshalText(text []byte) error {
	parsed, err := ParseWindowFunction(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// windowCoefficients fills coeffs with the weights of the selected window so
// the per-tick work is a single multiply pass.
func windowCoefficients(coeffs []float64, fn WindowFunction) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch fn {
	case WindowHann:
		window.Hann(coeffs)
	case WindowHamming:
		window.Hamming(coeffs)
	}
}
