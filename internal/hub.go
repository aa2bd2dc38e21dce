package grove

import (
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Hub tracks connected websocket clients by user so stats updates can be
// pushed to the sessions of exactly the user they belong to.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]string
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]string)}
}

func (h *Hub) Add(conn *websocket.Conn, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = userID
}

func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// NotifyUser sends a message to every connection belonging to userID.
// Connections that fail to take the write are dropped.
func (h *Hub) NotifyUser(userID string, message any) {
	jsonMessage, err := json.Marshal(message)
	if err != nil {
		log.Error("Error marshaling message", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, owner := range h.clients {
		if owner != userID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, jsonMessage); err != nil {
			log.Error("Error sending message to client", "err", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
