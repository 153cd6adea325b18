// SPDX-License-Identifier: MIT
package analysis

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseWindowFunction(t *testing.T) {
	tests := []struct {
		input   string
		want    WindowFunction
		wantErr bool
	}{
		{"none", WindowNone, false},
		{"", WindowNone, false},
		{"Hann", WindowHann, false},
		{"hanning", WindowHann, false},
		{" HAMMING ", WindowHamming, false},
		{"blackman", WindowNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseWindowFunction(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWindowFunction(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseWindowFunction(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWindowFunctionJSON(t *testing.T) {
	var payload struct {
		Window WindowFunction `json:"window"`
	}
	if err := json.Unmarshal([]byte(`{"window":"hamming"}`), &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if payload.Window != WindowHamming {
		t.Errorf("Window = %v, want hamming", payload.Window)
	}
	if err := json.Unmarshal([]byte(`{"window":"kaiser"}`), &payload); err == nil {
		t.Error("Unmarshal() accepted an unknown window")
	}
	if _, err := WindowFunction(7).MarshalText(); err == nil {
		t.Error("MarshalText() accepted an out of range value")
	}
}

func TestWindowCoefficients(t *testing.T) {
	const n = 64
	coeffs := make([]float64, n)

	windowCoefficients(coeffs, WindowNone)
	for i, c := range coeffs {
		if c != 1 {
			t.Fatalf("none coefficient %d = %f, want 1", i, c)
		}
	}

	windowCoefficients(coeffs, WindowHann)
	if math.Abs(coeffs[0]) > 1e-12 || math.Abs(coeffs[n-1]) > 1e-12 {
		t.Errorf("hann endpoints = (%f, %f), want 0", coeffs[0], coeffs[n-1])
	}

	windowCoefficients(coeffs, WindowHamming)
	if math.Abs(coeffs[0]-0.08) > 1e-9 {
		t.Errorf("hamming endpoint = %f, want 0.08", coeffs[0])
	}
	for i := range n / 2 {
		if math.Abs(coeffs[i]-coeffs[n-1-i]) > 1e-12 {
			t.Fatalf("hamming not symmetric at %d", i)
		}
	}
}
