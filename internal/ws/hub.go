package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/caseboard/caseboard/internal/model"
	"github.com/caseboard/caseboard/internal/services/session"
)

// Hub tracks live connections and their room broadcast groups. It implements
// session.Transport; the coordinator never touches sockets directly.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	rooms    map[model.RoomCode]map[string]*Client
	memberOf map[string]model.RoomCode
	logger   *slog.Logger
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		rooms:    make(map[model.RoomCode]map[string]*Client),
		memberOf: make(map[string]model.RoomCode),
		logger:   logger.With(slog.String("component", "ws-hub")),
	}
}

var _ session.Transport = (*Hub)(nil)

// Register adds a connected client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("connection registered",
		slog.String("connection", client.ID),
		slog.Int("total_connections", total))
}

// Unregister removes a client and its room membership and signals its write
// pump to stop. The send channel stays open: a broadcast that snapshotted
// this client moments earlier may still be delivering. Safe to call for an
// unknown id.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	client, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
		h.leaveCurrentRoomLocked(connID)
		client.shutdown()
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("connection unregistered",
			slog.String("connection", connID),
			slog.Int("total_connections", total))
	}
}

// JoinRoom subscribes a connection to a room's broadcast group, leaving any
// previous group first
func (h *Hub) JoinRoom(connID string, code model.RoomCode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}

	h.leaveCurrentRoomLocked(connID)

	group, ok := h.rooms[code]
	if !ok {
		group = make(map[string]*Client)
		h.rooms[code] = group
	}
	group[connID] = client
	h.memberOf[connID] = code
}

// RoomOf returns the room a connection is subscribed to
func (h *Hub) RoomOf(connID string) (model.RoomCode, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	code, ok := h.memberOf[connID]
	return code, ok
}

// Connections returns the ids of every connection subscribed to a room
func (h *Hub) Connections(code model.RoomCode) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	group := h.rooms[code]
	ids := make([]string, 0, len(group))
	for id := range group {
		ids = append(ids, id)
	}
	return ids
}

// SendToConnection delivers an event to a single connection
func (h *Hub) SendToConnection(connID string, event model.Event) {
	data, err := marshalEvent(event)
	if err != nil {
		h.logger.Error("failed to marshal event",
			slog.String("type", event.Type),
			slog.Any("error", err))
		return
	}

	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	h.deliver(client, data)
}

// BroadcastToRoom delivers an event to every connection in a room except the
// given one; an empty exception reaches the whole room
func (h *Hub) BroadcastToRoom(code model.RoomCode, exceptConnID string, event model.Event) {
	data, err := marshalEvent(event)
	if err != nil {
		h.logger.Error("failed to marshal event",
			slog.String("type", event.Type),
			slog.Any("error", err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[code]))
	for id, client := range h.rooms[code] {
		if id == exceptConnID {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.deliver(client, data)
	}
}

// ConnectionCount returns the number of registered connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.logger.Warn("message dropped - client buffer full",
			slog.String("connection", client.ID))
	}
}

// leaveCurrentRoomLocked removes a connection from its room group; caller
// holds the write lock
func (h *Hub) leaveCurrentRoomLocked(connID string) {
	code, ok := h.memberOf[connID]
	if !ok {
		return
	}
	delete(h.memberOf, connID)
	if group, ok := h.rooms[code]; ok {
		delete(group, connID)
		if len(group) == 0 {
			delete(h.rooms, code)
		}
	}
}

func marshalEvent(event model.Event) ([]byte, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(model.Envelope{Type: event.Type, Payload: payload})
}
