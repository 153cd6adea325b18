// SPDX-License-Identifier: MIT

// Package tui holds the terminal front ends: the capture device browser and
// a live bar view of the wheel that doubles as a settings panel.
package tui

import (
	"sync"

	"audiowheel/internal/log"
	"audiowheel/internal/settings"
	"audiowheel/internal/visualizer"

	tea "github.com/charmbracelet/bubbletea"
)

// TerminalScene runs the wheel view as a Bubble Tea program and feeds it
// frames from the tick loop. Frames are handed off without blocking; when
// the terminal falls behind, intermediate frames are skipped.
type TerminalScene struct {
	store   *settings.Store
	program *tea.Program

	pending chan tea.Msg
	done    chan struct{}
	wg      sync.WaitGroup
	started bool

	layoutMu sync.Mutex
	layout   settings.Restructure

	errMu sync.Mutex
	err   error
}

// NewTerminalScene creates the scene. Extra options are passed to the
// program; tests use them to replace the terminal.
func NewTerminalScene(store *settings.Store, opts ...tea.ProgramOption) *TerminalScene {
	s := &TerminalScene{
		store:   store,
		program: tea.NewProgram(NewWheelModel(store), opts...),
		pending: make(chan tea.Msg, 1),
		done:    make(chan struct{}),
	}
	if store != nil {
		current := store.Snapshot()
		s.layout = settings.Restructure{ColumnCount: current.ColumnCount, ColumnWidth: current.ColumnWidth}
	}
	return s
}

// Start runs the program and the frame pump in the background.
func (s *TerminalScene) Start() {
	s.started = true
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		defer close(s.done)
		if _, err := s.program.Run(); err != nil {
			s.errMu.Lock()
			s.err = err
			s.errMu.Unlock()
			log.Errorf("TUI: %v", err)
		}
	}()
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				return
			case msg := <-s.pending:
				s.program.Send(msg)
			}
		}
	}()
}

// Done is closed when the program exits, including when the user quits.
func (s *TerminalScene) Done() <-chan struct{} { return s.done }

// offer replaces any message still waiting for the pump.
func (s *TerminalScene) offer(msg tea.Msg) {
	for {
		select {
		case s.pending <- msg:
			return
		default:
		}
		select {
		case <-s.pending:
		default:
		}
	}
}

// Apply copies the frame and hands it to the program.
func (s *TerminalScene) Apply(frame visualizer.Frame) error {
	maxHeight := settings.Defaults().MaxHeight
	if s.store != nil {
		maxHeight = s.store.Snapshot().MaxHeight
	}
	s.layoutMu.Lock()
	layout := s.layout
	s.layoutMu.Unlock()

	msg := newFrameMsg(frame, maxHeight)
	msg.layout = layout
	s.offer(msg)
	return nil
}

// Restructure records the new layout; it travels with the next frame so a
// skipped message cannot lose it.
func (s *TerminalScene) Restructure(columnCount int, columnWidth float64) error {
	s.layoutMu.Lock()
	s.layout = settings.Restructure{ColumnCount: columnCount, ColumnWidth: columnWidth}
	s.layoutMu.Unlock()
	return nil
}

// Close quits the program and waits for it to restore the terminal.
func (s *TerminalScene) Close() error {
	if !s.started {
		return nil
	}
	s.program.Quit()
	s.wg.Wait()
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}
