package model

import "time"

// RoomCode is the 4-character identifier players share to meet in a room
type RoomCode string

// RoomStatus tracks whether a room expects live connections
type RoomStatus string

const (
	RoomStatusOnline  RoomStatus = "ONLINE"  // at least one active connection expected
	RoomStatusOffline RoomStatus = "OFFLINE" // abandoned; code may be reused
)

// IdentitySource distinguishes how a player's persistent identity was obtained
type IdentitySource string

const (
	// IdentityClient is a client-supplied id, stable across reconnects
	IdentityClient IdentitySource = "client"
	// IdentityConnection is the connection id used as a fallback when the
	// client supplied none; it can never match across reconnects
	IdentityConnection IdentitySource = "connection"
)

// PlayerIdentity is the reconciliation key for reconnects
type PlayerIdentity struct {
	ID     string         `json:"id"`
	Source IdentitySource `json:"source"`
}

// Player is a room member. ConnectionID is volatile and changes on every
// reconnect; Identity survives reconnects and process restarts.
type Player struct {
	ConnectionID string         `json:"connectionId"`
	Identity     PlayerIdentity `json:"identity"`
	DisplayName  string         `json:"displayName"`
	RoomCode     RoomCode       `json:"roomCode"`
	IsPrivate    bool           `json:"isPrivate"`
}

// Timer is the shared stopwatch state for a room
type Timer struct {
	Running   bool   `json:"running"`
	StartedAt *int64 `json:"startedAt"` // unix millis, nil while stopped
	ElapsedMs int64  `json:"elapsedMs"`
}

// Room groups players under a short code. Players are kept in join order;
// reconnects mutate in place and do not move a player to the end.
type Room struct {
	Code        RoomCode
	Players     []Player
	LastUpdated time.Time
	Status      RoomStatus
	Timer       Timer
}

// NewRoom creates an empty online room
func NewRoom(code RoomCode, now time.Time) *Room {
	return &Room{
		Code:        code,
		Players:     []Player{},
		LastUpdated: now,
		Status:      RoomStatusOnline,
	}
}

// FindByIdentity returns the player with the given persistent identity id,
// or nil if none
func (r *Room) FindByIdentity(id string) *Player {
	for i := range r.Players {
		if r.Players[i].Identity.ID == id {
			return &r.Players[i]
		}
	}
	return nil
}

// FindByConnection returns the player with the given connection id, or nil
func (r *Room) FindByConnection(connID string) *Player {
	for i := range r.Players {
		if r.Players[i].ConnectionID == connID {
			return &r.Players[i]
		}
	}
	return nil
}

// RemoveByConnection removes the player with the given connection id.
// Returns true if a player was removed.
func (r *Room) RemoveByConnection(connID string) bool {
	for i := range r.Players {
		if r.Players[i].ConnectionID == connID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

// RetainConnections keeps only players whose connection id is in the live
// set, returning how many were dropped
func (r *Room) RetainConnections(live map[string]bool) int {
	kept := r.Players[:0]
	for _, p := range r.Players {
		if live[p.ConnectionID] {
			kept = append(kept, p)
		}
	}
	dropped := len(r.Players) - len(kept)
	r.Players = kept
	return dropped
}

// Clone returns a deep copy. Rooms handed out of the repository are
// isolated snapshots; mutations take effect only through a Save.
func (r *Room) Clone() *Room {
	out := *r
	out.Players = make([]Player, len(r.Players))
	copy(out.Players, r.Players)
	if r.Timer.StartedAt != nil {
		startedAt := *r.Timer.StartedAt
		out.Timer.StartedAt = &startedAt
	}
	return &out
}

// ResetForReuse clears the room so its code can be handed out again
func (r *Room) ResetForReuse(now time.Time) {
	r.Players = []Player{}
	r.Status = RoomStatusOnline
	r.LastUpdated = now
	r.Timer = Timer{}
}
