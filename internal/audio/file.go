// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"audiowheel/internal/log"

	"github.com/go-audio/wav"
)

// DefaultChunkFrames is the replay chunk size, roughly what a sound card
// delivers per callback.
const DefaultChunkFrames = 512

// FileConfig describes a WAV replay source.
type FileConfig struct {
	Path        string
	Loop        bool
	ChunkFrames int // 0 uses DefaultChunkFrames
}

// FileSource replays a decoded WAV file into the sink in real time, as if it
// were a capture device. It serves headless runs and tests.
type FileSource struct {
	config     FileConfig
	sink       Sink
	samples    []float32 // interleaved, whole frames only
	chunk      []float32
	mono       []float32
	channels   int
	sampleRate float64
	pos        int

	recorder Recorder

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

var _ Feed = (*FileSource)(nil)

// OpenFile decodes the whole file up front.
func OpenFile(config FileConfig, sink Sink) (*FileSource, error) {
	f, err := os.Open(config.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", config.Path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", config.Path, err)
	}

	channels := max(int(d.NumChans), 1)
	samples := IntToFloat32(nil, buf.Data, int(d.BitDepth))
	if len(samples) < channels {
		return nil, fmt.Errorf("%s: no samples", config.Path)
	}

	return newFileSource(config, sink, samples, channels, float64(d.SampleRate)), nil
}

func newFileSource(config FileConfig, sink Sink, samples []float32, channels int, sampleRate float64) *FileSource {
	if config.ChunkFrames <= 0 {
		config.ChunkFrames = DefaultChunkFrames
	}
	s := &FileSource{
		config:     config,
		sink:       sink,
		samples:    samples,
		channels:   channels,
		sampleRate: sampleRate,
		stop:       make(chan struct{}),
	}
	s.samples = samples[:len(samples)-len(samples)%channels]
	s.chunk = make([]float32, 0, config.ChunkFrames*channels)
	s.mono = make([]float32, config.ChunkFrames)
	return s
}

// Start begins real-time replay on its own goroutine.
func (s *FileSource) Start() error {
	if s.done != nil {
		return fmt.Errorf("%s: already started", s.config.Path)
	}
	s.done = make(chan struct{})

	interval := time.Duration(float64(time.Second) * float64(s.config.ChunkFrames) / s.sampleRate)
	log.Infof("File: replaying %s (%d ch, %.0f Hz, chunk every %v, loop=%v)",
		s.config.Path, s.channels, s.sampleRate, interval, s.config.Loop)

	go s.run(interval)
	return nil
}

func (s *FileSource) run(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.step() {
				log.Infof("File: reached end of %s", s.config.Path)
				return
			}
		}
	}
}

// step pushes the next chunk, down-mixed to mono, and reports whether
// anything was pushed.
func (s *FileSource) step() bool {
	want := cap(s.chunk)
	chunk := s.chunk[:0]
	for len(chunk) < want {
		if s.pos >= len(s.samples) {
			if !s.config.Loop {
				break
			}
			s.pos = 0
		}
		take := min(want-len(chunk), len(s.samples)-s.pos)
		chunk = append(chunk, s.samples[s.pos:s.pos+take]...)
		s.pos += take
	}
	if len(chunk) == 0 {
		return false
	}

	s.recorder.Write(chunk)
	if s.channels == 1 {
		s.sink.PushSlice(chunk)
		return true
	}
	s.mono = Downmix(s.mono, chunk, s.channels)
	s.sink.PushSlice(s.mono)
	return true
}

// Close stops replay and any open recording.
func (s *FileSource) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.done != nil {
		<-s.done
	}
	return s.recorder.Stop()
}

// SampleRate returns the file's sample rate in Hz.
func (s *FileSource) SampleRate() float64 { return s.sampleRate }

// Channels returns the file's channel count. The sink receives mono.
func (s *FileSource) Channels() int { return s.channels }

// Duration returns the playing time of one pass through the file.
func (s *FileSource) Duration() time.Duration {
	frames := len(s.samples) / s.channels
	return time.Duration(float64(frames) / s.sampleRate * float64(time.Second))
}

// StartRecording records the replayed samples before the down-mix.
func (s *FileSource) StartRecording(filename string) error {
	return s.recorder.Start(filename, int(s.sampleRate), s.channels)
}

// Recorder returns the replay's recording tap.
func (s *FileSource) Recorder() *Recorder { return &s.recorder }
