// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

const generatorRate = 48000

func TestGenerators(t *testing.T) {
	tests := []struct {
		name  string
		wave  []float32
		limit float32
	}{
		{"Sine", GenerateSineWave(2048, generatorRate, 1000), 0.9},
		{"Complex", GenerateComplexWave(2048, generatorRate), 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.wave) != 2048 {
				t.Fatalf("len = %d, want 2048", len(tt.wave))
			}
			if tt.wave[0] != 0 {
				t.Errorf("first sample = %f, want 0 at phase zero", tt.wave[0])
			}
			for i, v := range tt.wave {
				if v < -tt.limit || v > tt.limit {
					t.Fatalf("sample %d = %f outside ±%g", i, v, tt.limit)
				}
			}
		})
	}

	// 1 kHz at 48 kHz repeats every 48 samples.
	sine := GenerateSineWave(96, generatorRate, 1000)
	if d := math.Abs(float64(sine[48] - sine[0])); d > 1e-6 {
		t.Errorf("sine not periodic: sample 48 = %f", sine[48])
	}
	if d := math.Abs(float64(sine[12]) - 0.9); d > 1e-6 {
		t.Errorf("quarter period = %f, want 0.9", sine[12])
	}
}

func TestGenerateSineWaveInt16(t *testing.T) {
	floats := GenerateSineWave(512, generatorRate, 440)
	ints := GenerateSineWaveInt16(512, generatorRate, 440)
	for i := range ints {
		if got := float64(ints[i]) / math.MaxInt16; math.Abs(got-float64(floats[i])) > 1e-3 {
			t.Fatalf("sample %d = %f, want %f", i, got, floats[i])
		}
	}
}

func TestFindPeakBin(t *testing.T) {
	mags := []float64{0.1, 0.7, 0.3, 0.9, 0.9, 0.2}

	tests := []struct {
		name       string
		start, end int
		want       int
	}{
		{"Whole Slice", 0, 5, 3},
		{"First Of Equal Peaks", 3, 4, 3},
		{"Window Before Peak", 0, 2, 1},
		{"Clamped Bounds", -4, 99, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(mags, tt.start, tt.end); got != tt.want {
				t.Errorf("FindPeakBin(%d, %d) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}

	if got := FindPeakBin(nil, 0, 10); got != 0 {
		t.Errorf("FindPeakBin(nil) = %d, want 0", got)
	}
}
