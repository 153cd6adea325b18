// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"audiowheel/cmd"
	"audiowheel/internal/audio"
	"audiowheel/internal/config"
	"audiowheel/internal/engine"
	"audiowheel/internal/log"
	"audiowheel/internal/ringbuf"
	"audiowheel/internal/settings"
	"audiowheel/internal/transport"
	"audiowheel/internal/transport/udp"
	"audiowheel/internal/tui"
	"audiowheel/pkg/build"
)

// main is the entry point for the audio-reactive display.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load the configuration
//   - Execute one-off commands if requested
//   - Initialize PortAudio, open the feed, build the scenes
//
// 2. Concurrent Phase (Hot Path):
//   - Capture callback fills the sample buffer
//   - Display loop analyzes, maps and publishes frames
//   - Scenes serve their clients; the config watcher applies edits
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop the feed and any recording
//   - Close the scenes
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}

	options, err := cmd.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if options == nil {
		return // help or version
	}
	cfg := options.Config
	log.SetLevel(cfg.LogLevelValue())

	switch options.Command {
	case cmd.CommandList:
		if err := listDevices(); err != nil {
			log.Fatalf("%v", err)
		}
		return

	case cmd.CommandDevices:
		selection, err := browseDevices()
		if err != nil {
			log.Fatalf("%v", err)
		}
		if selection == nil {
			return
		}
		cfg.Audio.InputDevice = selection.DeviceID
		cfg.Audio.SampleRate = selection.SampleRate
		cfg.Audio.SourceFile = ""
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options); err != nil {
		log.Fatalf("%v", err)
	}
}

func listDevices() error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices(os.Stdout)
}

func browseDevices() (*tui.Selection, error) {
	if err := audio.Initialize(); err != nil {
		return nil, err
	}
	defer audio.Terminate()
	return tui.StartDeviceListUI()
}

// run owns the process from the opened feed to shutdown.
func run(ctx context.Context, options *cmd.Options) error {
	cfg := options.Config
	info := build.GetBuildFlags()
	log.Infof("%s", info)

	samples, err := ringbuf.New(cfg.Audio.BufferSize)
	if err != nil {
		return err
	}

	feed, err := openFeed(cfg, samples)
	if err != nil {
		return err
	}
	if cfg.Audio.SourceFile == "" {
		defer audio.Terminate()
	}

	// The analysis rate follows the feed unless the configuration pins it.
	spectrum := cfg.Spectrum
	if spectrum.SamplingRate == 0 {
		spectrum.SamplingRate = feed.SampleRate()
	} else if spectrum.SamplingRate != feed.SampleRate() {
		log.Warnf("Main: spectrum sampling rate %.0f Hz differs from the feed's %.0f Hz",
			spectrum.SamplingRate, feed.SampleRate())
	}
	store, err := settings.NewStore(spectrum, samples.Cap())
	if err != nil {
		return fmt.Errorf("spectrum settings: %w", err)
	}

	scenes, terminal, err := openScenes(cfg, store)
	if err != nil {
		return err
	}
	defer closeScenes(scenes)

	loop, err := engine.New(engine.Config{
		RenderRate: cfg.Visualizer.RenderRate,
		TickPeriod: cfg.Visualizer.TickPeriod,
	}, samples, store)
	if err != nil {
		return err
	}
	for _, scene := range scenes {
		loop.AddScene(scene)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Visualizer.Watch {
		path := options.ConfigPath
		if path == "" {
			path = config.DefaultPath
		}
		go func() {
			if err := config.Watch(ctx, path, store); err != nil {
				log.Warnf("Main: %v", err)
			}
		}()
	}

	if terminal != nil {
		terminal.Start()
		go func() {
			<-terminal.Done()
			cancel()
		}()
	}

	// The first callback after Start marks the start of the hot path.
	if err := feed.Start(); err != nil {
		return err
	}
	defer func() {
		// ==================== SHUTDOWN PHASE (Cold Path) ====================
		if err := feed.Close(); err != nil {
			log.Errorf("Main: closing feed: %v", err)
		}
	}()

	if cfg.Recording.Enabled {
		filename, err := recordingPath(cfg.Recording)
		if err != nil {
			return err
		}
		if err := feed.StartRecording(filename); err != nil {
			return err
		}
	}

	if terminal == nil {
		fmt.Printf("%s running, press Ctrl+C to stop.\n", info.Name)
	}

	return loop.Run(ctx)
}

func openFeed(cfg *config.Config, sink audio.Sink) (audio.Feed, error) {
	if cfg.Audio.SourceFile != "" {
		return audio.OpenFile(audio.FileConfig{
			Path: cfg.Audio.SourceFile,
			Loop: cfg.Audio.Loop,
		}, sink)
	}

	if err := audio.Initialize(); err != nil {
		return nil, err
	}
	capture, err := audio.NewCapture(audio.CaptureConfig{
		DeviceID:        cfg.Audio.InputDevice,
		Channels:        cfg.Audio.InputChannels,
		SampleRate:      cfg.Audio.SampleRate,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		LowLatency:      cfg.Audio.LowLatency,
		GateThreshold:   cfg.Audio.GateThreshold,
	}, sink)
	if err != nil {
		audio.Terminate()
		if errors.Is(err, audio.ErrNoDevice) {
			return nil, fmt.Errorf("%w (try '%s list' or --file)", err, build.GetBuildFlags().Name)
		}
		return nil, err
	}
	return capture, nil
}

// udpScene closes the sender along with the publisher.
type udpScene struct {
	*udp.Publisher
	sender *udp.Sender
}

func (s udpScene) Close() error {
	return errors.Join(s.Publisher.Close(), s.sender.Close())
}

// openScenes builds every configured scene. The terminal scene is returned
// separately because its exit ends the run.
func openScenes(cfg *config.Config, store *settings.Store) ([]transport.Scene, *tui.TerminalScene, error) {
	var scenes []transport.Scene
	fail := func(err error) ([]transport.Scene, *tui.TerminalScene, error) {
		closeScenes(scenes)
		return nil, nil, err
	}

	t := cfg.Transport
	if t.LogFrames {
		scenes = append(scenes, transport.NewLoggingScene())
	}
	if t.WebSocketEnabled {
		ws := transport.NewWebSocketScene(t.WebSocketAddress, store)
		if err := ws.Start(); err != nil {
			ws.Close()
			return fail(err)
		}
		scenes = append(scenes, ws)
	}
	if t.UDPEnabled {
		sender, err := udp.NewSender(t.UDPTargetAddress)
		if err != nil {
			return fail(err)
		}
		publisher, err := udp.NewPublisher(t.UDPSendInterval, sender)
		if err != nil {
			sender.Close()
			return fail(err)
		}
		publisher.Start()
		scenes = append(scenes, udpScene{Publisher: publisher, sender: sender})
	}

	var terminal *tui.TerminalScene
	if t.TUI {
		// The terminal belongs to the view; logs go to a file instead.
		logFile, err := os.OpenFile("audiowheel.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fail(err)
		}
		log.SetOutput(logFile)
		terminal = tui.NewTerminalScene(store)
		scenes = append(scenes, terminal)
	}

	if len(scenes) == 0 {
		log.Warnf("Main: no scene configured; use --tui, --websocket or --udp to see the wheel")
	}
	return scenes, terminal, nil
}

func closeScenes(scenes []transport.Scene) {
	for _, scene := range scenes {
		if err := scene.Close(); err != nil {
			log.Errorf("Main: closing scene %T: %v", scene, err)
		}
	}
}

func recordingPath(rc config.RecordingConfig) (string, error) {
	name := rc.Filename
	if name == "" {
		name = "recording-" + time.Now().UTC().Format("01-02-2006-150405") + ".wav"
	}
	if filepath.IsAbs(name) || rc.OutputDir == "" {
		return name, nil
	}
	if err := os.MkdirAll(rc.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("recording directory: %w", err)
	}
	return filepath.Join(rc.OutputDir, name), nil
}
