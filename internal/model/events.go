package model

import "encoding/json"

// Inbound event types consumed from the websocket transport
const (
	EventJoinRoom    = "join_room"
	EventGameAction  = "game_action"
	EventTimerToggle = "timer_toggle"
	EventTimerReset  = "timer_reset"
)

// Outbound event types produced for clients
const (
	EventRoomJoined   = "room_joined"
	EventNotification = "notification"
	EventTimerSync    = "timer_sync"
)

// Privacy mode labels reported in room_joined replies
const (
	ModePublic = "PUBLIC"
	ModeSecret = "SECRET"
)

// Notification types
const (
	NotificationInfo      = "info"
	NotificationWarning   = "warning"
	NotificationGameEvent = "game_event"
)

// Envelope is the wire format for both directions on the websocket
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is an outbound message before marshalling
type Event struct {
	Type    string
	Payload any
}

// JoinRoomRequest is the payload of a join_room event
type JoinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	Nickname string `json:"nickname"`
	IsSecret bool   `json:"isSecret"`
	UserID   string `json:"userId,omitempty"`
}

// GameActionRequest is the payload of a game_action event
type GameActionRequest struct {
	Action string `json:"action"`
	Detail string `json:"detail"`
}

// RoomJoined is the direct reply to a joiner, also re-broadcast as a roster
// refresh after ghost pruning
type RoomJoined struct {
	RoomCode    RoomCode `json:"roomCode"`
	PlayerCount int      `json:"playerCount"`
	Mode        string   `json:"mode"`
	TimerState  Timer    `json:"timerState"`
}

// Notification carries join/leave/game-event broadcasts
type Notification struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ModeFor returns the coarse privacy label for a single player's flag
func ModeFor(isPrivate bool) string {
	if isPrivate {
		return ModeSecret
	}
	return ModePublic
}
