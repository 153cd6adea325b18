// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"audiowheel/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RecordingBitDepth is the PCM resolution of recorded files.
const RecordingBitDepth = 16

// ErrAlreadyRecording is returned by Start while a recording is open.
var ErrAlreadyRecording = errors.New("already recording")

// Recorder taps the capture stream into a WAV file. Start and Stop may be
// called from any goroutine; Write is called from the capture callback and
// returns immediately when no recording is open.
type Recorder struct {
	isRecording atomic.Bool

	mu         sync.Mutex
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer // Reusable buffer for format conversion
	path       string
	samples    int64
}

// Start creates filename and begins recording interleaved samples of the
// given format.
func (r *Recorder) Start(filename string, sampleRate, channels int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRecording.Load() {
		return ErrAlreadyRecording
	}
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid recording format: %d Hz, %d channels", sampleRate, channels)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	r.outputFile = file
	r.wavEncoder = wav.NewEncoder(file, sampleRate, RecordingBitDepth, channels, 1)
	r.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: RecordingBitDepth,
	}
	r.path = filename
	r.samples = 0

	r.isRecording.Store(true)
	log.Infof("Recorder: writing %s (%d Hz, %d ch)", filename, sampleRate, channels)
	return nil
}

// Write appends samples to the open recording.
func (r *Recorder) Write(samples []float32) {
	if !r.isRecording.Load() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return
	}

	r.sampleBuf.Data = Float32ToInt(r.sampleBuf.Data, samples, RecordingBitDepth)
	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		log.Errorf("Recorder: error writing to WAV file: %v", err)
		return
	}
	r.samples += int64(len(samples))
}

// Stop finalizes the WAV header and closes the file. Stopping when not
// recording is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRecording.Load() {
		return nil
	}
	r.isRecording.Store(false)

	var errs []error
	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			errs = append(errs, err)
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			errs = append(errs, err)
		}
		r.outputFile = nil
	}

	log.Infof("Recorder: closed %s (%d samples)", r.path, r.samples)
	return errors.Join(errs...)
}

// Recording reports whether a recording is open.
func (r *Recorder) Recording() bool {
	return r.isRecording.Load()
}

// Samples returns the number of samples written to the current or last
// recording.
func (r *Recorder) Samples() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples
}
