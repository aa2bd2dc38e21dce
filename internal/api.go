package grove

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"grove/internal/auth"
	"grove/internal/period"
)

// updateRequest is the validated body of POST /api/stats/update.
type updateRequest struct {
	UserID      string `json:"userId"`
	SessionType string `json:"sessionType"`
	Duration    int    `json:"duration"`
}

// resetRequest is the validated body of POST /api/stats/reset.
type resetRequest struct {
	UserID string `json:"userId"`
}

// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce plain
// @Success 200 {string} string "Healthy"
// @Router /health [get]
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Healthy"))
}

// @Summary Period stats
// @Description Window-filtered counters, chart series, sessions and streaks for one user
// @Tags stats
// @Produce json
// @Param userId query string true "Target user; must match the authenticated identity"
// @Param period query string false "today, week, month, year or all time (default all time)"
// @Param offset query int false "Signed whole-period shift, 0 = current"
// @Success 200 {object} stats.PeriodStats
// @Failure 400 {string} string "Bad request"
// @Failure 401 {string} string "Missing or invalid token"
// @Failure 403 {string} string "Identity does not match userId"
// @Failure 502 {string} string "Storage unavailable"
// @Security BearerAuth
// @Router /api/stats/period [get]
func (s *Server) PeriodStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := s.authorize(w, r, r.URL.Query().Get("userId"))
	if !ok {
		return
	}

	granularity := r.URL.Query().Get("period")
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		var err error
		offset, err = strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Failed to parse offset", http.StatusBadRequest)
			return
		}
	}
	log.Info("Fetching period stats", "user", userID, "period", granularity, "offset", offset)

	result, err := s.Stats.PeriodStats(r.Context(), userID, granularity, offset, time.Now())
	if err != nil {
		log.Error("Period stats failed", "user", userID, "error", err)
		http.Error(w, "Storage unavailable", http.StatusBadGateway)
		return
	}

	writeJSON(w, result)
}

// @Summary Record a completed session
// @Description Appends one tomato or plant session and updates the aggregate
// @Tags stats
// @Accept json
// @Produce json
// @Param body body updateRequest true "Completed session"
// @Success 200 {object} db.UserStats
// @Failure 400 {string} string "Bad request"
// @Failure 401 {string} string "Missing or invalid token"
// @Failure 403 {string} string "Identity does not match userId"
// @Failure 502 {string} string "Storage unavailable"
// @Security BearerAuth
// @Router /api/stats/update [post]
func (s *Server) UpdateStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	kind := period.SessionType(req.SessionType)
	if kind != period.Tomato && kind != period.Plant {
		http.Error(w, "sessionType must be tomato or plant", http.StatusBadRequest)
		return
	}
	if req.Duration < 0 {
		http.Error(w, "duration must not be negative", http.StatusBadRequest)
		return
	}

	userID, ok := s.authorize(w, r, req.UserID)
	if !ok {
		return
	}

	updated, err := s.Stats.RecordSession(r.Context(), userID, kind, req.Duration, time.Now())
	if err != nil {
		log.Error("Update stats failed", "user", userID, "error", err)
		http.Error(w, "Storage unavailable", http.StatusBadGateway)
		return
	}

	go s.BroadcastStats(userID, updated)
	writeJSON(w, updated)
}

// @Summary Reset stats
// @Description Zeroes all counters and empties the session log
// @Tags stats
// @Accept json
// @Produce json
// @Param body body resetRequest true "Target user"
// @Success 200 {object} db.UserStats
// @Failure 400 {string} string "Bad request"
// @Failure 401 {string} string "Missing or invalid token"
// @Failure 403 {string} string "Identity does not match userId"
// @Failure 502 {string} string "Storage unavailable"
// @Security BearerAuth
// @Router /api/stats/reset [post]
func (s *Server) ResetStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}

	userID, ok := s.authorize(w, r, req.UserID)
	if !ok {
		return
	}

	updated, err := s.Stats.Reset(r.Context(), userID, time.Now())
	if err != nil {
		log.Error("Reset stats failed", "user", userID, "error", err)
		http.Error(w, "Storage unavailable", http.StatusBadGateway)
		return
	}

	go s.BroadcastStats(userID, updated)
	writeJSON(w, updated)
}

// authorize verifies the bearer token and checks the authenticated
// identity against the target user. Writes the error response itself and
// returns ok=false when the caller may not proceed.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, targetUserID string) (string, bool) {
	token, ok := bearerToken(r)
	if !ok {
		http.Error(w, "Missing bearer token", http.StatusUnauthorized)
		return "", false
	}

	userID, err := s.Verifier.Verify(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
		} else {
			log.Error("Token verification failed", "error", err)
			http.Error(w, "Verification failed", http.StatusInternalServerError)
		}
		return "", false
	}

	if targetUserID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return "", false
	}
	if targetUserID != userID {
		http.Error(w, "Unauthorized access", http.StatusForbidden)
		return "", false
	}
	return userID, true
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error encoding response", "error", err)
	}
}
