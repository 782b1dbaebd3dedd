// Package ws is the websocket transport for the playback protocol. Each
// accepted connection gets a fresh identity, a read loop that decodes control
// messages into registry calls, and a write path serialized per connection.
package ws

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/banshee-data/routeplay/internal/config"
	"github.com/banshee-data/routeplay/internal/monitoring"
	"github.com/banshee-data/routeplay/internal/sim"
)

// client is one live websocket connection. The mutex serializes writes: the
// session clock goroutine and the read loop (error replies) both send.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Handler upgrades connections and bridges them to the session registry.
type Handler struct {
	registry *sim.Registry
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHandler builds a websocket handler with its own session registry
// configured from cfg.
func NewHandler(cfg *config.PlaybackConfig) *Handler {
	h := &Handler{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	h.registry = sim.NewRegistry(cfg.GetTickInterval(), cfg.GetStepScale(), h.send)
	return h
}

// Registry exposes the session registry, mainly for tests.
func (h *Handler) Registry() *sim.Registry {
	return h.registry
}

// send delivers one outbound message to a connection. A missing client means
// the connection already closed; the registry treats the error as a
// disconnect and tears the session down.
func (h *Handler) send(connID string, msg any) error {
	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()
	if c == nil {
		return fmt.Errorf("connection %s is closed", connID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// ServeHTTP upgrades the request and runs the connection's read loop until
// the peer goes away. Teardown always releases any session the connection
// owns, whether or not a STOP_SIMULATION was ever received.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("ws: upgrade failed: %v", err)
		return
	}

	// Connection identities are unique per live connection and never reused
	// after disconnect.
	connID := uuid.New().String()

	h.mu.Lock()
	h.clients[connID] = &client{conn: conn}
	h.mu.Unlock()

	monitoring.Logf("ws: client %s connected", connID)

	defer func() {
		// Deregister the writer first so a racing tick sees a closed
		// connection instead of writing into a dead socket, then release the
		// session and its clock.
		h.mu.Lock()
		delete(h.clients, connID)
		h.mu.Unlock()

		h.registry.Stop(connID)
		conn.Close()
		monitoring.Logf("ws: client %s disconnected", connID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.dispatch(connID, data)
	}
}

// dispatch decodes one inbound message and applies it. Protocol errors are
// logged and dropped without closing the connection; only a failed start
// produces an ERROR reply.
func (h *Handler) dispatch(connID string, data []byte) {
	cmd, err := sim.DecodeCommand(data)
	if err != nil {
		monitoring.Logf("ws: dropping message from %s: %v", connID, err)
		return
	}

	switch c := cmd.(type) {
	case sim.StartCommand:
		if err := h.registry.Start(connID, c.Waypoints, c.Speed); err != nil {
			if sendErr := h.send(connID, sim.NewErrorEvent(err.Error())); sendErr != nil {
				monitoring.Logf("ws: error reply to %s failed: %v", connID, sendErr)
			}
		}
	case sim.PauseCommand:
		h.registry.Pause(connID)
	case sim.ResumeCommand:
		h.registry.Resume(connID)
	case sim.StopCommand:
		h.registry.Stop(connID)
	case sim.UpdateSpeedCommand:
		h.registry.SetSpeed(connID, c.Speed)
	}
}
