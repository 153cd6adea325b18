// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"audiowheel/internal/log"
	"audiowheel/internal/settings"
	"audiowheel/internal/visualizer"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 2 * time.Second
	maxMessageSize = 64 * 1024
	broadcastDepth = 16
)

// wsClient pairs a connection with its write lock; gorilla allows one
// concurrent writer per connection.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsClient) writeJSON(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.write(data)
}

// WebSocketScene broadcasts frames as JSON to every connected client and
// applies settings patches the clients send.
type WebSocketScene struct {
	addr     string
	store    *settings.Store
	upgrader websocket.Upgrader

	clients   map[*wsClient]struct{}
	clientsMu sync.Mutex

	broadcast chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	server   *http.Server
	listener net.Listener
}

// NewWebSocketScene creates the scene and starts its broadcast loop. store
// may be nil, in which case settings patches are rejected. Call Start to
// serve on addr, or mount Handler on an existing server.
func NewWebSocketScene(addr string, store *settings.Store) *WebSocketScene {
	ws := &WebSocketScene{
		addr:  addr,
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local display clients connect from any origin
			},
		},
		clients:   make(map[*wsClient]struct{}),
		broadcast: make(chan []byte, broadcastDepth),
		done:      make(chan struct{}),
	}

	ws.wg.Add(1)
	go ws.handleBroadcasts()
	return ws
}

// Handler serves the WebSocket endpoint at /ws.
func (ws *WebSocketScene) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves in the background.
func (ws *WebSocketScene) Start() error {
	ln, err := net.Listen("tcp", ws.addr)
	if err != nil {
		return fmt.Errorf("websocket listen on %s: %w", ws.addr, err)
	}
	ws.listener = ln
	ws.server = &http.Server{
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("WebSocket: serving on ws://%s/ws", ln.Addr())
		if err := ws.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("WebSocket: server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the listening address once started, the configured one
// otherwise.
func (ws *WebSocketScene) Addr() string {
	if ws.listener != nil {
		return ws.listener.Addr().String()
	}
	return ws.addr
}

// Clients returns the number of connected clients.
func (ws *WebSocketScene) Clients() int {
	ws.clientsMu.Lock()
	defer ws.clientsMu.Unlock()
	return len(ws.clients)
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (ws *WebSocketScene) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket: upgrade error: %v", err)
		return
	}
	client := &wsClient{conn: conn}

	// Greet with the current layout and settings before any frame.
	if ws.store != nil {
		current := ws.store.Snapshot()
		greeting := []Message{
			{Type: MessageRestructure, Restructure: &settings.Restructure{
				ColumnCount: current.ColumnCount, ColumnWidth: current.ColumnWidth,
			}},
			{Type: MessageSettings, Settings: &current},
		}
		for _, msg := range greeting {
			if err := client.writeJSON(msg); err != nil {
				log.Warnf("WebSocket: greeting %s: %v", conn.RemoteAddr(), err)
				conn.Close()
				return
			}
		}
	}

	ws.clientsMu.Lock()
	ws.clients[client] = struct{}{}
	total := len(ws.clients)
	ws.clientsMu.Unlock()
	log.Infof("WebSocket: client %s connected, total: %d", conn.RemoteAddr(), total)

	go ws.readLoop(client)
}

// readLoop handles inbound messages until the client goes away.
func (ws *WebSocketScene) readLoop(client *wsClient) {
	defer ws.drop(client)

	client.conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debugf("WebSocket: read from %s: %v", client.conn.RemoteAddr(), err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			if client.writeJSON(Message{Type: MessageError, Error: "malformed message"}) != nil {
				return
			}
			continue
		}

		switch msg.Type {
		case MessageSettings:
			reply := ws.applyPatch(msg.Patch)
			if err := client.writeJSON(reply); err != nil {
				return
			}
		default:
			client.writeJSON(Message{Type: MessageError, Error: fmt.Sprintf("unknown message type %q", msg.Type)})
		}
	}
}

// applyPatch merges a partial settings object into the store. The reply
// carries the resulting settings or the reason the patch was rejected.
func (ws *WebSocketScene) applyPatch(patch json.RawMessage) Message {
	if ws.store == nil {
		return Message{Type: MessageError, Error: "settings are read-only"}
	}
	if len(patch) == 0 {
		current := ws.store.Snapshot()
		return Message{Type: MessageSettings, Settings: &current}
	}

	// The store discards the copy when decoding fails part way.
	next, err := ws.store.Edit(func(s *settings.Spectrum) error {
		if err := json.Unmarshal(patch, s); err != nil {
			return fmt.Errorf("decode patch: %w", err)
		}
		return nil
	})
	if err != nil {
		return Message{Type: MessageError, Error: err.Error()}
	}
	log.Infof("WebSocket: settings updated by client")
	return Message{Type: MessageSettings, Settings: &next}
}

func (ws *WebSocketScene) drop(client *wsClient) {
	ws.clientsMu.Lock()
	_, ok := ws.clients[client]
	delete(ws.clients, client)
	total := len(ws.clients)
	ws.clientsMu.Unlock()

	client.conn.Close()
	if ok {
		log.Infof("WebSocket: client %s disconnected, total: %d", client.conn.RemoteAddr(), total)
	}
}

// handleBroadcasts sends messages to all connected clients
func (ws *WebSocketScene) handleBroadcasts() {
	defer ws.wg.Done()
	for {
		select {
		case <-ws.done:
			return
		case data := <-ws.broadcast:
			ws.clientsMu.Lock()
			clients := make([]*wsClient, 0, len(ws.clients))
			for client := range ws.clients {
				clients = append(clients, client)
			}
			ws.clientsMu.Unlock()

			for _, client := range clients {
				if err := client.write(data); err != nil {
					log.Warnf("WebSocket: error sending to %s: %v", client.conn.RemoteAddr(), err)
					ws.drop(client)
				}
			}
		}
	}
}

// send queues an encoded message, dropping it when the queue is full.
func (ws *WebSocketScene) send(msg Message) error {
	if ws.Clients() == 0 {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	select {
	case <-ws.done:
		return errors.New("websocket scene closed")
	case ws.broadcast <- data:
	default:
		log.Debugf("WebSocket: broadcast queue full, dropping %s", msg.Type)
	}
	return nil
}

// Apply broadcasts the frame. The frame is encoded before Apply returns, so
// the caller may reuse its buffers.
func (ws *WebSocketScene) Apply(frame visualizer.Frame) error {
	return ws.send(Message{Type: MessageFrame, Frame: &frame})
}

// Restructure tells clients to rebuild their columns.
func (ws *WebSocketScene) Restructure(columnCount int, columnWidth float64) error {
	return ws.send(Message{Type: MessageRestructure, Restructure: &settings.Restructure{
		ColumnCount: columnCount,
		ColumnWidth: columnWidth,
	}})
}

// Close shuts down the WebSocket server
func (ws *WebSocketScene) Close() error {
	var err error
	ws.closeOnce.Do(func() {
		log.Infof("WebSocket: closing server")
		close(ws.done)
		ws.wg.Wait()

		if ws.server != nil {
			err = ws.server.Close()
		}

		// Close all client connections
		ws.clientsMu.Lock()
		for client := range ws.clients {
			client.conn.Close()
		}
		clear(ws.clients)
		ws.clientsMu.Unlock()
	})
	return err
}

// Ensure WebSocketScene satisfies the interface
var _ Scene = (*WebSocketScene)(nil)
