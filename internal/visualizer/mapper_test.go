// SPDX-License-Identifier: MIT
package visualizer

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"audiowheel/internal/analysis"
	"audiowheel/internal/settings"
)

func testSettings(pow, sections, smoothing int) *settings.Spectrum {
	s := settings.Defaults()
	s.ColumnCountPowerOfTwo = pow
	s.SectionCount = sections
	s.Normalize()
	s.SmoothingRange = smoothing
	return &s
}

func spectrumOf(mags ...float64) *analysis.Spectrum {
	bins := make([]analysis.Bin, len(mags))
	for i, m := range mags {
		bins[i] = analysis.Bin{Frequency: 20 + 10*float64(i), Magnitude: m}
	}
	return analysis.NewSpectrum(bins)
}

func randomSpectrum(n int, seed uint64) *analysis.Spectrum {
	r := rand.New(rand.NewPCG(seed, seed))
	mags := make([]float64, n)
	for i := range mags {
		mags[i] = r.Float64()
	}
	mags[n/2] = 1
	return spectrumOf(mags...)
}

func TestMapCompleteness(t *testing.T) {
	binCounts := []int{1, 3, 31, 32, 33, 100, 143, 1000}
	for _, pow := range []int{5, 6, 8, 10} {
		for _, n := range binCounts {
			s := testSettings(pow, 1, 4)
			var m Mapper
			cols := m.Map(randomSpectrum(n, uint64(n)), s)

			if len(cols) != s.ColumnCount {
				t.Fatalf("pow %d bins %d: got %d columns, want %d", pow, n, len(cols), s.ColumnCount)
			}
			for i, c := range cols {
				if c.Index != i {
					t.Fatalf("pow %d bins %d: column %d has index %d", pow, n, i, c.Index)
				}
				if math.IsNaN(c.Value) || c.Height < 1 || c.Height > s.MaxHeight {
					t.Fatalf("pow %d bins %d: column %d = %+v", pow, n, i, c)
				}
			}
		}
	}
}

func TestBucketSummation(t *testing.T) {
	tests := []struct {
		name string
		mags []float64
		want []float64
	}{
		{"Even Split", []float64{1, 3, 2, 2, 0, 0, 4, 0}, []float64{2, 2, 0, 2}},
		{"Last Absorbs Remainder", []float64{1, 1, 2, 2, 3, 3, 0, 4, 4, 4}, []float64{1, 2, 3, 3}},
		{"One Bin Each", []float64{0.1, 0.2, 0.3, 0.4}, []float64{0.1, 0.2, 0.3, 0.4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]float64, 4)
			bucket(values, spectrumOf(tt.mags...).Bins, len(values))
			for i := range values {
				if math.Abs(values[i]-tt.want[i]) > 1e-12 {
					t.Errorf("values = %v, want %v", values, tt.want)
					break
				}
			}
		})
	}
}

func TestBucketDistribution(t *testing.T) {
	tests := []struct {
		name string
		mags []float64
		w    int
		want []float64
	}{
		{"Uneven", []float64{1, 2, 3}, 8, []float64{1, 1, 1, 2, 2, 2, 3, 3}},
		{"Even", []float64{5, 6}, 4, []float64{5, 5, 6, 6}},
		{"Single Bin", []float64{0.5}, 3, []float64{0.5, 0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]float64, tt.w)
			bucket(values, spectrumOf(tt.mags...).Bins, len(values))
			if !slices.Equal(values, tt.want) {
				t.Errorf("values = %v, want %v", values, tt.want)
			}
		})
	}

	t.Run("Empty", func(t *testing.T) {
		values := []float64{1, 2, 3}
		bucket(values, nil, len(values))
		if !slices.Equal(values, []float64{0, 0, 0}) {
			t.Errorf("values = %v, want zeros", values)
		}
	})
}

func TestBucketSegment(t *testing.T) {
	tests := []struct {
		name  string
		mags  []float64
		count int
		want  []float64
	}{
		{"Summation Keeps Lower Ranges", []float64{1, 1, 2, 2, 3, 3, 4, 4}, 4, []float64{1, 2}},
		{"Uneven Split", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 4, []float64{1.5, 3.5}},
		{"Distribution Keeps Lower Runs", []float64{1, 2, 3}, 8, []float64{1, 1, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]float64, len(tt.want))
			bucket(values, spectrumOf(tt.mags...).Bins, tt.count)
			if !slices.Equal(values, tt.want) {
				t.Errorf("values = %v, want %v", values, tt.want)
			}
		})
	}
}

func TestSmooth(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		r      int
		want   []float64
	}{
		{"Range One Is Identity", []float64{4, 0, 1, 3}, 1, []float64{4, 0, 1, 3}},
		{"Sequential Sweep", []float64{4, 0, 0, 0}, 2, []float64{2, 1, 0.5, 0.25}},
		{"Constant Stays Constant", []float64{3, 3, 3, 3, 3}, 3, []float64{3, 3, 3, 3, 3}},
		{"Range Clamped To Width", []float64{2, 2}, 5, []float64{2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := slices.Clone(tt.values)
			smooth(values, tt.r)
			for i := range values {
				if math.Abs(values[i]-tt.want[i]) > 1e-12 {
					t.Errorf("smooth(%v, %d) = %v, want %v", tt.values, tt.r, values, tt.want)
					break
				}
			}
		})
	}
}

func TestMapSmoothingOne(t *testing.T) {
	spectrum := randomSpectrum(320, 7)
	s := testSettings(5, 1, 1)

	raw := make([]float64, 32)
	bucket(raw, spectrum.Bins, len(raw))

	var m Mapper
	for i, c := range m.Map(spectrum, s) {
		if c.Value != raw[i] {
			t.Fatalf("column %d value = %f, want raw %f", i, c.Value, raw[i])
		}
	}
}

func TestMapMirroring(t *testing.T) {
	for _, pow := range []int{5, 7, 10} {
		s := testSettings(pow, 2, 5)
		var m Mapper
		cols := m.Map(randomSpectrum(143, uint64(pow)), s)

		half := s.ColumnCount / 2
		for i := range half {
			if cols[i+half].Height != cols[i].Height {
				t.Fatalf("pow %d: column %d height %f != column %d height %f",
					pow, i+half, cols[i+half].Height, i, cols[i].Height)
			}
			if cols[i+half].Highlighted != cols[i].Highlighted {
				t.Fatalf("pow %d: column %d highlight differs from column %d", pow, i+half, i)
			}
		}
	}
}

func TestMapMirroringSources(t *testing.T) {
	// 64 bins over 32 columns: two bins per column, so the mirrored half
	// is fed by bins 0..31 and never sees the loud upper half.
	mags := make([]float64, 64)
	for i := 32; i < 64; i++ {
		mags[i] = 1
	}
	spectrum := spectrumOf(mags...)
	s := testSettings(5, 2, 1)

	var m Mapper
	cols := m.Map(spectrum, s)
	for i, c := range cols {
		if c.Value != 0 {
			t.Fatalf("column %d value = %f, want 0 (bins %d..%d)", i, c.Value, 2*(i%16), 2*(i%16)+1)
		}
		if c.Height != 1 {
			t.Fatalf("column %d height = %f, want 1", i, c.Height)
		}
	}

	// A ramp shows exactly which pair feeds each computed column.
	for i := range mags {
		mags[i] = float64(i)
	}
	cols = m.Map(spectrumOf(mags...), s)
	for i := range 16 {
		want := float64(4*i+1) / 2
		if cols[i].Value != want || cols[i+16].Value != want {
			t.Fatalf("columns %d and %d = %f, %f, want %f",
				i, i+16, cols[i].Value, cols[i+16].Value, want)
		}
	}
}

func TestMapSilence(t *testing.T) {
	tests := []struct {
		name     string
		spectrum *analysis.Spectrum
	}{
		{"Zero Magnitudes", spectrumOf(make([]float64, 143)...)},
		{"Few Zero Bins", spectrumOf(0, 0)},
		{"Empty", spectrumOf()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Mapper
			for _, sections := range []int{1, 2} {
				for i, c := range m.Map(tt.spectrum, testSettings(8, sections, 4)) {
					if c.Height != 1 {
						t.Fatalf("column %d height = %f, want 1", i, c.Height)
					}
					if c.Highlighted {
						t.Fatalf("column %d highlighted in silence", i)
					}
				}
			}
		})
	}
}

func TestMapIdempotent(t *testing.T) {
	spectrum := randomSpectrum(500, 42)
	s := testSettings(8, 2, 6)

	var m Mapper
	first := slices.Clone(m.Map(spectrum, s))
	second := m.Map(spectrum, s)
	if !slices.Equal(first, second) {
		t.Error("mapping the same spectrum twice produced different columns")
	}

	var fresh Mapper
	if !slices.Equal(first, fresh.Map(spectrum, s)) {
		t.Error("a fresh mapper produced different columns")
	}
}

func TestMapHighlight(t *testing.T) {
	// 32 bins into 32 columns without smoothing: one bin per column.
	mags := make([]float64, 32)
	mags[3] = 1
	mags[10] = 0.05
	spectrum := spectrumOf(mags...)
	s := testSettings(5, 1, 1)

	var m Mapper
	cols := m.Map(spectrum, s)

	// mean is 1.05/32 ≈ 0.033, so the threshold is ≈ 0.066.
	for i, c := range cols {
		want := i == 3
		if c.Highlighted != want {
			t.Errorf("column %d (value %f) highlighted = %v, want %v", i, c.Value, c.Highlighted, want)
		}
	}
	if cols[3].Height != s.MaxHeight {
		t.Errorf("peak column height = %f, want %f", cols[3].Height, s.MaxHeight)
	}
	if want := 0.05 * s.MaxHeight; math.Abs(cols[10].Height-want) > 1e-9 {
		t.Errorf("column 10 height = %f, want %f", cols[10].Height, want)
	}
}

func TestColumnHeight(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		max   float64
		peak  float64
		want  float64
	}{
		{"Zero Over Zero", 0, 500, 0, 1},
		{"Positive Over Zero", 0.5, 500, 0, 500},
		{"NaN Value", math.NaN(), 500, 1, 1},
		{"Below Minimum", 0.001, 500, 1, 1},
		{"Scaled", 0.5, 500, 1, 250},
		{"Above Maximum", 2, 500, 1, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := columnHeight(tt.value, tt.max, tt.peak); got != tt.want {
				t.Errorf("columnHeight(%v, %v, %v) = %v, want %v", tt.value, tt.max, tt.peak, got, tt.want)
			}
		})
	}
}

func TestMapAllocations(t *testing.T) {
	spectrum := randomSpectrum(143, 1)
	s := testSettings(8, 2, 4)
	var m Mapper
	m.Map(spectrum, s)

	allocs := testing.AllocsPerRun(100, func() {
		m.Map(spectrum, s)
	})
	if allocs > 0 {
		t.Errorf("Map() allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkMap(b *testing.B) {
	benchmarks := []struct {
		name string
		pow  int
		bins int
	}{
		{"32 Columns", 5, 143},
		{"256 Columns", 8, 143},
		{"1024 Columns", 10, 1400},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			spectrum := randomSpectrum(bm.bins, 3)
			s := testSettings(bm.pow, 1, 4)
			var m Mapper

			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				m.Map(spectrum, s)
			}
		})
	}
}
