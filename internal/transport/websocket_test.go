// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"audiowheel/internal/settings"
	"audiowheel/internal/visualizer"

	"github.com/gorilla/websocket"
)

func newTestStore(t *testing.T) *settings.Store {
	t.Helper()
	st, err := settings.NewStore(settings.Defaults(), 8192)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return st
}

// dial connects a client to a scene served by httptest and consumes the
// greeting.
func dial(t *testing.T, ws *WebSocketScene) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(ws.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if ws.store != nil {
		if msg := read(t, conn); msg.Type != MessageRestructure || msg.Restructure == nil {
			t.Fatalf("first greeting = %+v, want restructure", msg)
		}
		if msg := read(t, conn); msg.Type != MessageSettings || msg.Settings == nil {
			t.Fatalf("second greeting = %+v, want settings", msg)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for ws.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ws.Clients() == 0 {
		t.Fatal("client never registered")
	}
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestWebSocketGreeting(t *testing.T) {
	st := newTestStore(t)
	ws := NewWebSocketScene("", st)
	defer ws.Close()

	srv := httptest.NewServer(ws.Handler())
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	msg := read(t, conn)
	if msg.Restructure.ColumnCount != 256 || msg.Restructure.ColumnWidth != 2.5 {
		t.Errorf("greeting layout = %+v, want 256 columns of width 2.5", msg.Restructure)
	}
	msg = read(t, conn)
	if msg.Settings.Radius != settings.Defaults().Radius {
		t.Errorf("greeting radius = %g", msg.Settings.Radius)
	}
}

func TestWebSocketBroadcastsFrames(t *testing.T) {
	ws := NewWebSocketScene("", nil)
	defer ws.Close()

	// No clients: nothing is encoded or queued.
	if err := ws.Apply(visualizer.Frame{Sequence: 1}); err != nil {
		t.Fatalf("Apply() without clients error = %v", err)
	}

	conn := dial(t, ws)

	columns := []visualizer.Column{{Index: 0, Height: 42, Highlighted: true}}
	if err := ws.Restructure(64, 3); err != nil {
		t.Fatalf("Restructure() error = %v", err)
	}
	if err := ws.Apply(visualizer.Frame{Sequence: 2, Columns: columns}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	columns[0].Height = 0 // the scene must have encoded its own copy

	msg := read(t, conn)
	if msg.Type != MessageRestructure || msg.Restructure.ColumnCount != 64 {
		t.Errorf("first message = %+v, want restructure to 64", msg)
	}
	msg = read(t, conn)
	if msg.Type != MessageFrame || msg.Frame.Sequence != 2 {
		t.Fatalf("second message = %+v, want frame 2", msg)
	}
	if c := msg.Frame.Columns[0]; c.Height != 42 || !c.Highlighted {
		t.Errorf("column = %+v, want height 42 highlighted", c)
	}
}

func TestWebSocketSettingsPatch(t *testing.T) {
	st := newTestStore(t)
	ws := NewWebSocketScene("", st)
	defer ws.Close()
	conn := dial(t, ws)

	tests := []struct {
		name      string
		message   string
		wantType  string
		wantError string
	}{
		{"Valid Patch", `{"type":"settings","patch":{"radius":300,"windowFunction":"hann"}}`, MessageSettings, ""},
		{"Read Back", `{"type":"settings"}`, MessageSettings, ""},
		{"Out Of Range", `{"type":"settings","patch":{"maxHeight":0}}`, MessageError, "invalid settings"},
		{"Bad Window", `{"type":"settings","patch":{"windowFunction":"blackman"}}`, MessageError, "decode patch"},
		{"Partly Decoded", `{"type":"settings","patch":{"radius":450,"windowFunction":"blackman"}}`, MessageError, "decode patch"},
		{"Unknown Type", `{"type":"reboot"}`, MessageError, "unknown message type"},
		{"Malformed", `{"type":`, MessageError, "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.message)); err != nil {
				t.Fatalf("WriteMessage() error = %v", err)
			}
			msg := read(t, conn)
			if msg.Type != tt.wantType {
				t.Fatalf("reply = %+v, want type %s", msg, tt.wantType)
			}
			if tt.wantError != "" && !strings.Contains(msg.Error, tt.wantError) {
				t.Errorf("error = %q, want it to mention %q", msg.Error, tt.wantError)
			}
			if msg.Type == MessageSettings && msg.Settings.Radius != 300 {
				t.Errorf("settings radius = %g, want 300", msg.Settings.Radius)
			}
		})
	}

	got := st.Snapshot()
	if got.Radius != 300 || got.MaxHeight != settings.Defaults().MaxHeight {
		t.Errorf("store = radius %g max height %g, want only the valid patch applied", got.Radius, got.MaxHeight)
	}
}

func TestWebSocketPatchTriggersRestructure(t *testing.T) {
	st := newTestStore(t)
	ws := NewWebSocketScene("", st)
	defer ws.Close()

	reply := ws.applyPatch(json.RawMessage(`{"columnCountPowerOfTwo":6}`))
	if reply.Type != MessageSettings || reply.Settings.ColumnCount != 64 {
		t.Fatalf("reply = %+v, want 64 columns", reply)
	}
	select {
	case req := <-st.Restructure():
		if req.ColumnCount != 64 {
			t.Errorf("restructure = %+v, want 64 columns", req)
		}
	default:
		t.Error("no restructure request after changing the exponent")
	}
}

func TestWebSocketReadOnly(t *testing.T) {
	ws := NewWebSocketScene("", nil)
	defer ws.Close()
	if reply := ws.applyPatch(json.RawMessage(`{"radius":1}`)); reply.Type != MessageError {
		t.Errorf("reply = %+v, want error without a store", reply)
	}
}

func TestWebSocketStartClose(t *testing.T) {
	ws := NewWebSocketScene("127.0.0.1:0", newTestStore(t))
	if err := ws.Start(); err != nil {
		t.Skipf("cannot listen on loopback: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ws.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	read(t, conn)
	read(t, conn)

	if err := ws.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if ws.Clients() != 0 {
		t.Errorf("Clients() = %d after Close", ws.Clients())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still open after Close")
	}
}

func TestLoggingScene(t *testing.T) {
	ls := NewLoggingScene()
	if err := ls.Restructure(32, 1); err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		if err := ls.Apply(visualizer.Frame{Sequence: uint64(i + 1)}); err != nil {
			t.Fatal(err)
		}
	}
	if ls.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", ls.Frames())
	}
	if err := ls.Close(); err != nil {
		t.Error(err)
	}
}
