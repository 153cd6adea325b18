// SPDX-License-Identifier: MIT

// Package config loads the YAML configuration, applies environment
// overrides and watches the file for live spectrum changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"audiowheel/internal/analysis"
	"audiowheel/internal/log"
	"audiowheel/internal/settings"
	"audiowheel/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// DefaultPath is searched when no config path is given.
const DefaultPath = "config.yaml"

// Hardware and processing limits.
const (
	MinDeviceID     = -1     // -1 represents the loop-back or system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
	MaxBufferSize   = 1 << 16
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug      bool              `yaml:"debug"`     // Enable debug logging.
	LogLevel   string            `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio      AudioConfig       `yaml:"audio"`
	Spectrum   settings.Spectrum `yaml:"spectrum"`
	Visualizer VisualizerConfig  `yaml:"visualizer"`
	Recording  RecordingConfig   `yaml:"recording"`
	Transport  TransportConfig   `yaml:"transport"`
}

// AudioConfig holds settings related to the sample feed.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for loop-back or default).
	InputChannels   int     `yaml:"input_channels"`    // 0 uses the device's channel count, capped at 2.
	SampleRate      float64 `yaml:"sample_rate"`       // 0 uses the device's default rate.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // 0 lets PortAudio choose.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Peak below which chunks are silenced (0 disables).
	BufferSize      int     `yaml:"buffer_size"`       // Sample history held for analysis (power of 2).
	SourceFile      string  `yaml:"source_file"`       // Replay a WAV file instead of capturing.
	Loop            bool    `yaml:"loop"`              // Loop the replayed file.
}

// VisualizerConfig holds the pacing of the display loop.
type VisualizerConfig struct {
	TickPeriod time.Duration `yaml:"tick_period"` // Interval between analysis ticks.
	RenderRate float64       `yaml:"render_rate"` // Passes per second of the display loop.
	Watch      bool          `yaml:"watch"`       // Reload the spectrum section when the file changes.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record the feed to a WAV file.
	OutputDir string `yaml:"output_dir"` // Directory to save recorded audio files.
	Filename  string `yaml:"filename"`   // File name; empty generates a timestamped one.
}

// TransportConfig holds the scenes frames are published to.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve frames and accept settings over WebSocket.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address (e.g., "127.0.0.1:8080").
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send frames over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
	TUI              bool          `yaml:"tui"`                // Draw frames in the terminal.
	LogFrames        bool          `yaml:"log_frames"`         // Log a summary of every frame.
}

// Defaults returns the built-in configuration. The spectrum sampling rate
// is left at 0 so it follows the feed.
func Defaults() Config {
	spectrum := settings.Defaults()
	spectrum.SamplingRate = 0

	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice: MinDeviceID,
			BufferSize:  8192,
		},
		Spectrum: spectrum,
		Visualizer: VisualizerConfig{
			TickPeriod: 32 * time.Millisecond,
			RenderRate: 144,
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
		},
		Transport: TransportConfig{
			WebSocketAddress: "127.0.0.1:8080",
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz.
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it searches DefaultPath. If no file is found, it uses built-in
// defaults. After loading it applies environment variable overrides and
// validates the final configuration.
//
// A spectrum sampling rate of 0 is left for the caller to fill in from the
// feed; the other spectrum fields are still validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
		path = DefaultPath
	}

	if err := cfg.readFile(path); err != nil {
		return nil, err
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	c.Spectrum.Normalize()
	return nil
}

// Validate checks the sections that are fixed for the life of the process.
// The spectrum section is validated against the buffer size.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("%w: audio.input_device %d must be >= %d", ErrInvalidConfig, a.InputDevice, MinDeviceID)
	}
	if a.InputChannels < 0 || a.InputChannels > 2 {
		return fmt.Errorf("%w: audio.input_channels %d must be 0, 1 or 2", ErrInvalidConfig, a.InputChannels)
	}
	if a.SampleRate != 0 && (a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate) {
		return fmt.Errorf("%w: audio.sample_rate %g must be in [%d, %d]", ErrInvalidConfig, a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.FramesPerBuffer < 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("%w: audio.frames_per_buffer %d must be in [0, %d]", ErrInvalidConfig, a.FramesPerBuffer, MaxBufferFrames)
	}
	if a.GateThreshold < 0 || a.GateThreshold > 1 {
		return fmt.Errorf("%w: audio.gate_threshold %g must be in [0, 1]", ErrInvalidConfig, a.GateThreshold)
	}
	if !bitint.IsPowerOfTwo(a.BufferSize) || a.BufferSize > MaxBufferSize {
		return fmt.Errorf("%w: audio.buffer_size %d must be a power of 2 no larger than %d", ErrInvalidConfig, a.BufferSize, MaxBufferSize)
	}

	if c.Visualizer.TickPeriod <= 0 {
		return fmt.Errorf("%w: visualizer.tick_period must be positive", ErrInvalidConfig)
	}
	if c.Visualizer.RenderRate <= 0 {
		return fmt.Errorf("%w: visualizer.render_rate must be positive", ErrInvalidConfig)
	}

	t := c.Transport
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		return fmt.Errorf("%w: transport.websocket_address must be set when WebSocket is enabled", ErrInvalidConfig)
	}
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			return fmt.Errorf("%w: transport.udp_target_address must be set when UDP is enabled", ErrInvalidConfig)
		}
		if t.UDPSendInterval <= 0 {
			return fmt.Errorf("%w: transport.udp_send_interval must be positive when UDP is enabled", ErrInvalidConfig)
		}
	}

	spectrum := c.Spectrum
	if spectrum.SamplingRate == 0 {
		spectrum.SamplingRate = MaxSampleRate
	}
	spectrum.Normalize()
	if err := spectrum.Validate(a.BufferSize); err != nil {
		return fmt.Errorf("spectrum: %w", err)
	}
	return nil
}

// LogLevelValue resolves the effective log level; Debug wins over LogLevel.
func (c *Config) LogLevelValue() log.LogLevel {
	if c.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// applyEnvOverrides reads AUDIOWHEEL_* variables. Unparseable values are
// logged and ignored.
func (c *Config) applyEnvOverrides() {
	// AUDIOWHEEL_{...}
	// These are general overrides.
	envBool("AUDIOWHEEL_DEBUG", &c.Debug)
	envString("AUDIOWHEEL_LOG_LEVEL", &c.LogLevel)

	// AUDIOWHEEL_AUDIO_{...}
	envInt("AUDIOWHEEL_AUDIO_DEVICE", &c.Audio.InputDevice)
	envString("AUDIOWHEEL_AUDIO_SOURCE_FILE", &c.Audio.SourceFile)

	// AUDIOWHEEL_SPECTRUM_{...}
	if val, ok := os.LookupEnv("AUDIOWHEEL_SPECTRUM_WINDOW"); ok {
		if fn, err := analysis.ParseWindowFunction(val); err == nil {
			c.Spectrum.WindowFunction = fn
			log.Infof("Config: overriding spectrum.window_function from env: %s", fn)
		} else {
			log.Warnf("Config: ignoring AUDIOWHEEL_SPECTRUM_WINDOW: %v", err)
		}
	}
	envInt("AUDIOWHEEL_SPECTRUM_TRANSFORM_LENGTH", &c.Spectrum.TransformLength)

	// AUDIOWHEEL_WEBSOCKET_{...} and AUDIOWHEEL_UDP_{...}
	// These are specific to the transport layer.
	envBool("AUDIOWHEEL_WEBSOCKET_ENABLED", &c.Transport.WebSocketEnabled)
	envString("AUDIOWHEEL_WEBSOCKET_ADDRESS", &c.Transport.WebSocketAddress)
	envBool("AUDIOWHEEL_UDP_ENABLED", &c.Transport.UDPEnabled)
	envString("AUDIOWHEEL_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	if val, ok := os.LookupEnv("AUDIOWHEEL_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			log.Infof("Config: overriding transport.udp_send_interval from env: %s", dur)
		} else {
			log.Warnf("Config: ignoring AUDIOWHEEL_UDP_SEND_INTERVAL: %v", err)
		}
	}
}

func envString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
		log.Infof("Config: overriding from env %s=%s", key, val)
	}
}

func envBool(key string, dst *bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Warnf("Config: ignoring %s: %v", key, err)
		return
	}
	*dst = b
	log.Infof("Config: overriding from env %s=%v", key, b)
}

func envInt(key string, dst *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Warnf("Config: ignoring %s: %v", key, err)
		return
	}
	*dst = n
	log.Infof("Config: overriding from env %s=%d", key, n)
}
