package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/caseboard/caseboard/internal/model"
	"github.com/caseboard/caseboard/internal/services/session"
)

// Handler upgrades HTTP requests to websocket connections and routes inbound
// events to the coordinator
type Handler struct {
	hub         *Hub
	coordinator *session.Coordinator
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewHandler creates the websocket endpoint handler
func NewHandler(hub *Hub, coordinator *session.Coordinator, logger *slog.Logger) *Handler {
	return &Handler{
		hub:         hub,
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The app has no authentication; the companion client is
			// served from arbitrary origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws-handler")),
	}
}

// ServeHTTP handles one connection for its full lifetime
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := NewClient(uuid.NewString(), conn, h.logger)
	h.hub.Register(client)
	go client.writePump()

	client.readPump(func(data []byte) {
		h.dispatch(r, client.ID, data)
	})

	// Connection gone: drop it from the hub first so the leave broadcast
	// and ghost pruning see an accurate live set
	h.hub.Unregister(client.ID)
	h.coordinator.HandleDisconnect(r.Context(), client.ID)
}

// dispatch decodes an inbound envelope and invokes the matching coordinator
// operation. Unknown or malformed events are logged and dropped; this
// transport is fire-and-forget.
func (h *Handler) dispatch(r *http.Request, connID string, data []byte) {
	var envelope model.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		h.logger.Warn("dropping malformed message",
			slog.String("connection", connID),
			slog.Any("error", err))
		return
	}

	ctx := r.Context()
	switch envelope.Type {
	case model.EventJoinRoom:
		var req model.JoinRoomRequest
		if err := json.Unmarshal(envelope.Payload, &req); err != nil {
			h.logger.Warn("dropping malformed join_room payload",
				slog.String("connection", connID),
				slog.Any("error", err))
			return
		}
		h.coordinator.HandleJoin(ctx, connID, req)

	case model.EventGameAction:
		var req model.GameActionRequest
		if err := json.Unmarshal(envelope.Payload, &req); err != nil {
			h.logger.Warn("dropping malformed game_action payload",
				slog.String("connection", connID),
				slog.Any("error", err))
			return
		}
		h.coordinator.HandleGameAction(ctx, connID, req)

	case model.EventTimerToggle:
		h.coordinator.HandleTimerToggle(ctx, connID)

	case model.EventTimerReset:
		h.coordinator.HandleTimerReset(ctx, connID)

	default:
		h.logger.Warn("dropping unknown event type",
			slog.String("connection", connID),
			slog.String("type", envelope.Type))
	}
}
