// SPDX-License-Identifier: MIT

// Package cmd parses the command line into the run options.
package cmd

import (
	"fmt"
	"io"

	"audiowheel/internal/config"
	"audiowheel/pkg/build"

	"github.com/spf13/cobra"
)

// One-off commands.
const (
	CommandRun     = ""
	CommandList    = "list"
	CommandDevices = "devices"
)

// Options is the result of parsing the command line: the loaded
// configuration with flag overrides applied, and the command to execute.
type Options struct {
	Config     *config.Config
	ConfigPath string
	Command    string
}

// flagValues holds the raw flag values; only flags the user set override
// the configuration file.
type flagValues struct {
	configPath string

	device          int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	gate            float64
	bufferSize      int
	file            string
	loop            bool

	window          string
	transformLength int

	record bool
	output string

	websocket string
	udp       string
	tui       bool
	logFrames bool
	watch     bool

	verbose  bool
	logLevel string
}

// ParseArgs parses args (without the program name). Help and version
// output go to out; they return nil options and a nil error.
func ParseArgs(args []string, out io.Writer) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	var (
		flags   flagValues
		options *Options
	)

	// load resolves the configuration once the flags are parsed.
	load := func(cmd *cobra.Command, command string) error {
		cfg, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return err
		}
		if err := flags.apply(cmd, cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
		options = &Options{Config: cfg, ConfigPath: flags.configPath, Command: command}
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Long:          buildInfo.Description + ".\n\nCaptures the system's audio output and draws it as a rotating wheel of bars.",
		Version:       buildInfo.Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandRun)
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandList)
		},
	})

	// Device browser
	rootCmd.AddCommand(&cobra.Command{
		Use:   "devices",
		Short: "Pick a capture device interactively, then visualize it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandDevices)
		},
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Configuration file (default ./"+config.DefaultPath+" when present)")

	// Audio Device Configuration
	pf.IntVarP(&flags.device, "device", "d", config.MinDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&flags.channels, "channels", "c", 0,
		"Number of channels to capture (0=device native, 1=mono, 2=stereo)")
	pf.Float64VarP(&flags.sampleRate, "sample-rate", "s", 0,
		"Sample rate, measured in Hertz (Hz); 0 uses the device default")
	pf.IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", 0,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	pf.Float64Var(&flags.gate, "gate", 0, "Silence chunks whose peak is below this level (0-1)")
	pf.IntVar(&flags.bufferSize, "buffer-size", 8192, "Samples of history kept for analysis (power of 2)")
	pf.StringVarP(&flags.file, "file", "f", "", "Replay a WAV file instead of capturing")
	pf.BoolVar(&flags.loop, "loop", false, "Loop the replayed file")

	// Analysis
	pf.StringVarP(&flags.window, "window", "w", "", "Window function: none, hann or hamming")
	pf.IntVar(&flags.transformLength, "transform-length", 0, "FFT size (power of 2, at most the buffer size)")

	// Recording Configuration
	pf.BoolVarP(&flags.record, "record", "r", false,
		"Record the captured audio")
	pf.StringVarP(&flags.output, "output", "o", "",
		"Output file name. Default is recording-MM-DD-YYYY-HHMMSS.wav")

	// Scenes
	pf.StringVar(&flags.websocket, "websocket", "", "Serve frames and settings over WebSocket on this address")
	pf.StringVar(&flags.udp, "udp", "", "Send binary frames to this UDP address")
	pf.BoolVarP(&flags.tui, "tui", "t", false, "Draw the wheel in the terminal")
	pf.BoolVar(&flags.logFrames, "log-frames", false, "Log a summary of every frame (debug level)")
	pf.BoolVar(&flags.watch, "watch", false, "Reload the spectrum settings when the config file changes")

	// Debug Configuration
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}

// apply copies every flag the user set into cfg.
func (f *flagValues) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("device") {
		cfg.Audio.InputDevice = f.device
	}
	if changed("channels") {
		cfg.Audio.InputChannels = f.channels
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = f.framesPerBuffer
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if changed("gate") {
		cfg.Audio.GateThreshold = f.gate
	}
	if changed("buffer-size") {
		cfg.Audio.BufferSize = f.bufferSize
	}
	if changed("file") {
		cfg.Audio.SourceFile = f.file
	}
	if changed("loop") {
		cfg.Audio.Loop = f.loop
	}

	if changed("window") {
		if err := cfg.Spectrum.WindowFunction.UnmarshalText([]byte(f.window)); err != nil {
			return fmt.Errorf("--window: %w", err)
		}
	}
	if changed("transform-length") {
		cfg.Spectrum.TransformLength = f.transformLength
	}

	if changed("record") {
		cfg.Recording.Enabled = f.record
	}
	if changed("output") {
		cfg.Recording.Filename = f.output
		cfg.Recording.Enabled = true
	}

	if changed("websocket") {
		cfg.Transport.WebSocketEnabled = f.websocket != ""
		cfg.Transport.WebSocketAddress = f.websocket
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = f.udp != ""
		cfg.Transport.UDPTargetAddress = f.udp
	}
	if changed("tui") {
		cfg.Transport.TUI = f.tui
	}
	if changed("log-frames") {
		cfg.Transport.LogFrames = f.logFrames
	}
	if changed("watch") {
		cfg.Visualizer.Watch = f.watch
	}

	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("verbose") {
		cfg.Debug = f.verbose
	}
	return nil
}
