// SPDX-License-Identifier: MIT

/*
Package audio feeds the sample ring buffer from a live PortAudio capture or
a WAV file, and can tap the feed into a WAV recording.

Thread Safety:
  - The capture callback runs on PortAudio's thread; it only touches
    pre-allocated buffers, the ring buffer (one lock per chunk), the gate
    (atomics) and the recorder.
  - Start and Close are called from the main goroutine at startup and
    shutdown only.
*/
package audio

import (
	"fmt"
	"sync"
	"time"

	"audiowheel/internal/log"

	"github.com/gordonklaus/portaudio"
)

// MaxCaptureChannels caps the channel count opened on a device.
const MaxCaptureChannels = 2

// Sink receives normalized float samples. The ring buffer satisfies it.
type Sink interface {
	PushSlice(samples []float32)
}

// Feed is a running sample source.
type Feed interface {
	// Start opens the source and begins delivering samples. The feed runs
	// until Close.
	Start() error
	Close() error
	SampleRate() float64
	// Channels is the source's channel count. The sink always receives
	// mono, so sample positions in the ring buffer line up with
	// SampleRate.
	Channels() int
	// StartRecording taps the feed into a WAV file until the recorder is
	// stopped or the feed closed.
	StartRecording(filename string) error
	Recorder() *Recorder
}

// CaptureConfig selects and shapes the live capture stream.
type CaptureConfig struct {
	DeviceID        int     // DefaultDeviceID picks the loop-back or default input
	Channels        int     // 0 uses the device's channel count, capped at MaxCaptureChannels
	SampleRate      float64 // 0 uses the device's default rate
	FramesPerBuffer int     // 0 lets PortAudio choose
	LowLatency      bool
	GateThreshold   float64 // 0 disables the gate
}

// Capture is the live PortAudio feed.
type Capture struct {
	config CaptureConfig
	sink   Sink

	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream
	channels     int
	sampleRate   float64

	mu       sync.Mutex // guards the callback buffers against Close
	chunk    []float32
	mono     []float32
	gate     Gate
	recorder Recorder
}

var _ Feed = (*Capture)(nil)

// NewCapture resolves the device. ErrNoDevice is returned when nothing can
// be captured.
func NewCapture(config CaptureConfig, sink Sink) (*Capture, error) {
	inputDevice, err := InputDevice(config.DeviceID)
	if err != nil {
		return nil, err
	}
	return newCapture(config, sink, inputDevice), nil
}

func newCapture(config CaptureConfig, sink Sink, device *portaudio.DeviceInfo) *Capture {
	c := &Capture{
		config:      config,
		sink:        sink,
		inputDevice: device,
	}

	c.channels = config.Channels
	if c.channels <= 0 {
		c.channels = min(device.MaxInputChannels, MaxCaptureChannels)
	}
	c.channels = max(c.channels, 1)

	c.sampleRate = config.SampleRate
	if c.sampleRate <= 0 {
		c.sampleRate = device.DefaultSampleRate
	}

	if config.LowLatency {
		c.inputLatency = device.DefaultLowInputLatency
	} else {
		c.inputLatency = device.DefaultHighInputLatency
	}

	if config.GateThreshold > 0 {
		c.gate.SetThreshold(config.GateThreshold)
		c.gate.Enable()
	}

	// Pre-allocate callback buffers sized for frames × channels.
	if config.FramesPerBuffer > 0 {
		c.chunk = make([]float32, config.FramesPerBuffer*c.channels)
		c.mono = make([]float32, config.FramesPerBuffer)
	}
	return c
}

// Start opens the input stream and starts it immediately.
func (c *Capture) Start() error {
	framesPerBuffer := c.config.FramesPerBuffer
	if framesPerBuffer <= 0 {
		framesPerBuffer = portaudio.FramesPerBufferUnspecified
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: c.channels,
			Device:   c.inputDevice,
			Latency:  c.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: framesPerBuffer,
		SampleRate:      c.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processInputStream)
	if err != nil {
		return fmt.Errorf("open stream on %q: %w", c.inputDevice.Name, err)
	}
	c.inputStream = stream

	if err := c.inputStream.Start(); err != nil {
		c.inputStream.Close()
		c.inputStream = nil
		return fmt.Errorf("start stream on %q: %w", c.inputDevice.Name, err)
	}

	log.Infof("Capture: listening on %q (%d ch, %.0f Hz, latency %v)",
		c.inputDevice.Name, c.channels, c.sampleRate, c.inputLatency)
	return nil
}

// Close stops the stream and any open recording.
func (c *Capture) Close() error {
	if err := c.recorder.Stop(); err != nil {
		log.Warnf("Capture: stopping recorder: %v", err)
	}

	if c.inputStream == nil {
		return nil
	}
	if err := c.inputStream.Stop(); err != nil {
		return err
	}
	if err := c.inputStream.Close(); err != nil {
		return err
	}
	c.inputStream = nil
	return nil
}

// SampleRate returns the stream's sample rate in Hz.
func (c *Capture) SampleRate() float64 { return c.sampleRate }

// Channels returns the stream's channel count. The sink receives the
// down-mixed mono signal.
func (c *Capture) Channels() int { return c.channels }

// Device returns the opened device.
func (c *Capture) Device() *portaudio.DeviceInfo { return c.inputDevice }

// Gate returns the capture's noise gate.
func (c *Capture) Gate() *Gate { return &c.gate }

// StartRecording records the stream as delivered by the device, before any
// down-mix.
func (c *Capture) StartRecording(filename string) error {
	return c.recorder.Start(filename, int(c.sampleRate), c.channels)
}

// Recorder returns the capture's recording tap.
func (c *Capture) Recorder() *Recorder { return &c.recorder }

// processInputStream is the PortAudio callback. It must not allocate once
// the buffers have grown to the delivered chunk size.
func (c *Capture) processInputStream(in []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.chunk = grow(c.chunk, len(in))
	copy(c.chunk, in)

	c.gate.Apply(c.chunk)
	c.recorder.Write(c.chunk)

	if c.channels == 1 {
		c.sink.PushSlice(c.chunk)
		return
	}
	c.mono = Downmix(c.mono, c.chunk, c.channels)
	c.sink.PushSlice(c.mono)
}
