package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebSocketHandler streams scan lifecycle events to connected clients.
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	serverInstanceID string
}

type wsMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: uuid.New().String(),
	}

	// Every scan lifecycle event is forwarded to connected clients.
	for _, eventType := range []interfaces.EventType{
		interfaces.EventScanStarted,
		interfaces.EventScanCompleted,
		interfaces.EventSlotsFound,
	} {
		et := eventType
		eventService.Subscribe(et, func(_ context.Context, event interfaces.Event) {
			h.Broadcast(string(et), event.Payload)
		})
	}

	return h
}

// HandleWebSocket upgrades the connection and registers the client.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().Int("clients", clientCount).Msg("WebSocket client connected")

	// Connection banner lets clients detect server restarts.
	h.send(conn, wsMessage{
		Type:      "connected",
		Payload:   map[string]string{"server_instance_id": h.serverInstanceID},
		Timestamp: time.Now().UTC(),
	})

	// Reader loop exists only to detect disconnects; clients do not send
	// meaningful messages.
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast fans a message out to every connected client.
func (h *WebSocketHandler) Broadcast(eventType string, payload interface{}) {
	message := wsMessage{Type: eventType, Payload: payload, Timestamp: time.Now().UTC()}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := h.send(conn, message); err != nil {
			h.removeClient(conn)
		}
	}
}

// send serializes writes per connection; gorilla connections do not allow
// concurrent writers.
func (h *WebSocketHandler) send(conn *websocket.Conn, message wsMessage) error {
	h.mu.RLock()
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()
	if mutex == nil {
		return websocket.ErrCloseSent
	}

	mutex.Lock()
	defer mutex.Unlock()
	return conn.WriteJSON(message)
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		conn.Close()
		h.logger.Info().Int("clients", len(h.clients)).Msg("WebSocket client disconnected")
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
