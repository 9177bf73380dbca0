package dispatch

import (
	"sync"

	"github.com/gorilla/websocket"

	"monitoring-service/internal/logging"
)

// Hub fans delivered alerts out to connected WebSocket clients.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	logger *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]bool),
		logger: logger,
	}
}

// Add registers a connection.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
	h.logger.Infof("WebSocket client connected (total: %d)", len(h.conns))
}

// Remove unregisters a connection.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	h.logger.Infof("WebSocket client disconnected (remaining: %d)", len(h.conns))
}

// Broadcast sends a message to every connected client, dropping broken
// connections.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Errorf("WebSocket write failed, dropping client: %v", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}
