package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/caseboard/caseboard/internal/api/response"
	"github.com/caseboard/caseboard/internal/model"
	"github.com/caseboard/caseboard/internal/services/room"
)

// RoomHandler serves the room HTTP operations: code allocation, redacted
// lookup, and the rare explicit delete
type RoomHandler struct {
	rooms *room.Repository
}

// NewRoomHandler creates a RoomHandler
func NewRoomHandler(rooms *room.Repository) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// Allocate handles POST /api/rooms: reserve a fresh unique room code.
// Exhausting the retry bound is the one storage failure surfaced to callers.
func (h *RoomHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	code, err := h.rooms.GenerateUniqueCode(r.Context())
	if err != nil {
		if errors.Is(err, model.ErrCodeSpaceExhausted) {
			response.Error(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		response.Error(w, http.StatusInternalServerError, "failed to allocate room code")
		return
	}

	response.JSON(w, http.StatusCreated, response.CodeResponse{Code: code})
}

// pathCode extracts the room code from the URL, normalized the same way the
// join path normalizes it
func pathCode(r *http.Request) model.RoomCode {
	return model.RoomCode(strings.ToUpper(strings.TrimSpace(mux.Vars(r)["code"])))
}

// Get handles GET /api/rooms/{code}: a redacted view of the room. Private
// members count toward playerCount but are not listed.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)

	rm, ok := h.rooms.Get(r.Context(), code)
	if !ok {
		response.Error(w, http.StatusNotFound, "room not found")
		return
	}

	names := make([]string, 0, len(rm.Players))
	for _, p := range rm.Players {
		if p.IsPrivate {
			continue
		}
		names = append(names, p.DisplayName)
	}

	response.JSON(w, http.StatusOK, response.RoomResponse{
		Code:        rm.Code,
		Status:      rm.Status,
		PlayerCount: len(rm.Players),
		Players:     names,
		Timer:       rm.Timer,
		LastUpdated: rm.LastUpdated.UnixMilli(),
	})
}

// Delete handles DELETE /api/rooms/{code}
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)

	if err := h.rooms.Delete(r.Context(), code); err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to delete room")
		return
	}

	response.NoContent(w)
}
