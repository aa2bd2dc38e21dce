package grove

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"grove/internal/db"
)

// statsEvent is the message pushed to a user's connections after their
// aggregate changes.
type statsEvent struct {
	Event string        `json:"event"`
	Stats *db.UserStats `json:"stats"`
}

// @Summary WebSocket connection endpoint
// @Description Establishes a WebSocket connection; the server pushes the fresh aggregate whenever the user records or resets a session
// @Tags websocket
// @Param token query string true "Bearer token"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 401 {string} string "Missing or invalid token"
// @Router /connect [get]
func (s *Server) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}
	userID, err := s.Verifier.Verify(r.Context(), token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error(err)
		return
	}
	log.Info("Client connected", "user", userID)

	s.Hub.Add(conn, userID)
	defer func() {
		conn.Close()
		s.Hub.Remove(conn)
	}()

	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			log.Info("Client disconnected", "user", userID)
			return
		}
		if string(p) == "get_stats" {
			s.pushStats(userID)
		}
	}
}

// BroadcastStats pushes an already-loaded aggregate to the user's
// connections.
func (s *Server) BroadcastStats(userID string, aggregate *db.UserStats) {
	s.Hub.NotifyUser(userID, statsEvent{Event: "stats", Stats: aggregate})
}

// pushStats loads the user's aggregate and pushes it. A user with no
// aggregate yet gets zero values.
func (s *Server) pushStats(userID string) {
	aggregate, err := s.Store.Stats(context.Background(), userID)
	if errors.Is(err, db.ErrNotFound) {
		aggregate = &db.UserStats{UserID: userID}
	} else if err != nil {
		log.Error("Failed to load stats for push", "user", userID, "error", err)
		return
	}
	s.BroadcastStats(userID, aggregate)
}
