package response

import "github.com/caseboard/caseboard/internal/model"

// ErrorResponse is the JSON body for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// CodeResponse is the body of a successful room-code allocation
type CodeResponse struct {
	Code model.RoomCode `json:"code"`
}

// RoomResponse is the redacted public view of a room: display names and
// counts, no connection or identity data, no private members listed
type RoomResponse struct {
	Code        model.RoomCode   `json:"code"`
	Status      model.RoomStatus `json:"status"`
	PlayerCount int              `json:"playerCount"`
	Players     []string         `json:"players"`
	Timer       model.Timer      `json:"timer"`
	LastUpdated int64            `json:"lastUpdated"`
}
