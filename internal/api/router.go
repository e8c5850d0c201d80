package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/caseboard/caseboard/internal/api/handler"
	"github.com/caseboard/caseboard/internal/api/middleware"
	"github.com/caseboard/caseboard/internal/services/room"
)

// RouterConfig holds configuration for the HTTP router
type RouterConfig struct {
	Logger *slog.Logger
	Rooms  *room.Repository

	// WebsocketHandler serves the real-time endpoint; it is mounted outside
	// the logging middleware because connections are long-lived
	WebsocketHandler http.Handler
}

// NewRouter creates the router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	roomHandler := handler.NewRoomHandler(cfg.Rooms)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/rooms", roomHandler.Allocate).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}", roomHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	if cfg.WebsocketHandler != nil {
		r.Handle("/ws", recoveryMiddleware(cfg.WebsocketHandler))
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
