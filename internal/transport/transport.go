// SPDX-License-Identifier: MIT

// Package transport publishes wheel frames to scenes outside the process:
// WebSocket clients (which may also tune the live settings), UDP listeners
// and the log.
package transport

import (
	"encoding/json"

	"audiowheel/internal/settings"
	"audiowheel/internal/visualizer"
)

// Scene is a visualizer.Scene that owns a server or connection.
// Implementations must be safe to call from the tick loop while other
// goroutines serve clients.
type Scene interface {
	visualizer.Scene
	Close() error
}

// Message types exchanged over the WebSocket.
const (
	MessageFrame       = "frame"       // server → client, one per tick
	MessageRestructure = "restructure" // server → client, before a frame with a new layout
	MessageSettings    = "settings"    // both ways: client patch, server current settings
	MessageError       = "error"       // server → client, rejected patch
)

// Message is the JSON envelope of every WebSocket message.
type Message struct {
	Type        string                `json:"type"`
	Frame       *visualizer.Frame     `json:"frame,omitempty"`
	Restructure *settings.Restructure `json:"restructure,omitempty"`
	Settings    *settings.Spectrum    `json:"settings,omitempty"`
	// Patch holds a partial settings object; only the keys present are
	// changed.
	Patch json.RawMessage `json:"patch,omitempty"`
	Error string          `json:"error,omitempty"`
}
