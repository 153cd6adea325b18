// SPDX-License-Identifier: MIT
package audio

import (
	"strconv"
	"sync"
	"testing"

	"audiowheel/internal/analysis"
	"audiowheel/internal/ringbuf"
	"audiowheel/pkg/utils"
)

const (
	testSampleRate = 44100
	testFrameSize  = 512
)

var (
	testBuffer  = utils.GenerateSineWave(testFrameSize*2, testSampleRate, 440)
	quietBuffer = scaled(testBuffer, 0.001)
	loudBuffer  = scaled(testBuffer, 1/0.9)
)

func scaled(src []float32, gain float32) []float32 {
	out := make([]float32, len(src))
	for i, s := range src {
		out[i] = s * gain
	}
	return out
}

// sinkRecorder collects everything pushed to it.
type sinkRecorder struct {
	mu      sync.Mutex
	samples []float32
	pushes  int
}

func (s *sinkRecorder) PushSlice(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, samples...)
	s.pushes++
}

func (s *sinkRecorder) snapshot() ([]float32, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float32(nil), s.samples...), s.pushes
}

// interleave duplicates a mono signal across channels, the way a stereo
// device delivers a centered source.
func interleave(mono []float32, channels int) []float32 {
	out := make([]float32, 0, len(mono)*channels)
	for _, s := range mono {
		for range channels {
			out = append(out, s)
		}
	}
	return out
}

// analyzePeak runs a full-buffer Hann analysis over store and returns the
// frequency of the loudest bin in [20, 1555.5] Hz.
func analyzePeak(t *testing.T, store *ringbuf.Store, sampleRate float64) float64 {
	t.Helper()
	a, err := analysis.NewAnalyzer(store.Cap())
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	spectrum, err := a.Analyze(store, analysis.Config{
		TransformLength: store.Cap(),
		SamplingRate:    sampleRate,
		LowerFrequency:  20,
		UpperFrequency:  1555.5,
		Window:          analysis.WindowHann,
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	mags := spectrum.Magnitudes(nil)
	return spectrum.Bins[utils.FindPeakBin(mags, 0, len(mags)-1)].Frequency
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
