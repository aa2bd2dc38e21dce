package grove

import (
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"grove/internal/auth"
	"grove/internal/db"
	"grove/internal/stats"
)

const envFile = ".env"

// Server wires the stats service, the store, the identity verifier and the
// websocket hub behind the HTTP routes.
type Server struct {
	Store    *db.Store
	Stats    *stats.Service
	Verifier auth.Verifier
	Hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer loads configuration from the environment (and .env when
// present), opens the database and constructs all collaborators.
func NewServer() (*Server, error) {
	if err := godotenv.Load(envFile); err != nil {
		log.Warn("No .env file loaded", "error", err)
	}

	dbPath := os.Getenv("GROVE_DB_PATH")
	if dbPath == "" {
		dbPath = "grove.db"
	}

	store, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewHMACVerifier()
	if err != nil {
		store.Close()
		return nil, err
	}

	log.Info("Store initialized", "path", dbPath)
	return &Server{
		Store:    store,
		Stats:    stats.NewService(store),
		Verifier: verifier,
		Hub:      NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}, nil
}

// Close releases the server's resources.
func (s *Server) Close() error {
	return s.Store.Close()
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SetupRoutes configures all HTTP routes for the server
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.HealthHandler)
	mux.HandleFunc("/api/stats/period", s.PeriodStatsHandler)
	mux.HandleFunc("/api/stats/update", s.UpdateStatsHandler)
	mux.HandleFunc("/api/stats/reset", s.ResetStatsHandler)
	mux.HandleFunc("/connect", s.WebsocketHandler)

	return corsMiddleware(mux)
}
