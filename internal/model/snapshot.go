package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion is the current persisted room schema version. Version 0
// (untagged) is the legacy shape written before the schema was versioned;
// it is migrated at load time.
const SnapshotVersion = 2

// roomSnapshot is the persisted shape of a Room
type roomSnapshot struct {
	Version     int        `json:"version"`
	Code        RoomCode   `json:"code"`
	Players     []Player   `json:"players"`
	LastUpdated int64      `json:"lastUpdated"` // unix millis
	Status      RoomStatus `json:"status"`
	Timer       Timer      `json:"timer"`
}

// legacyPlayer is the pre-versioning player shape: the connection id lived in
// "id", the persistent identity in "userId" (equal to "id" when the client
// supplied none)
type legacyPlayer struct {
	ID       string   `json:"id"`
	Nickname string   `json:"nickname"`
	RoomCode RoomCode `json:"roomCode"`
	IsSecret bool     `json:"isSecret"`
	UserID   string   `json:"userId"`
}

// legacySnapshot is the pre-versioning room shape with flat timer fields
type legacySnapshot struct {
	Code         RoomCode       `json:"code"`
	Players      []legacyPlayer `json:"players"`
	LastUpdated  int64          `json:"last_updated"`
	Status       RoomStatus     `json:"status"`
	TimerRunning bool           `json:"timer_running"`
	TimerStart   *int64         `json:"timer_start"`
	TimerElapsed int64          `json:"timer_elapsed"`
}

// EncodeRoom serializes a room in the current snapshot schema
func EncodeRoom(room *Room) ([]byte, error) {
	snap := roomSnapshot{
		Version:     SnapshotVersion,
		Code:        room.Code,
		Players:     room.Players,
		LastUpdated: room.LastUpdated.UnixMilli(),
		Status:      room.Status,
		Timer:       room.Timer,
	}
	if snap.Players == nil {
		snap.Players = []Player{}
	}
	return json.Marshal(snap)
}

// DecodeRoom deserializes a room snapshot, migrating legacy (unversioned)
// blobs to the current schema. Unparsable blobs yield ErrSnapshotCorrupt.
func DecodeRoom(data []byte) (*Room, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	switch probe.Version {
	case 0, 1:
		return decodeLegacy(data)
	case SnapshotVersion:
		var snap roomSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
		}
		return snap.toRoom(), nil
	default:
		return nil, fmt.Errorf("%w: version %d", ErrSnapshotVersionUnsupported, probe.Version)
	}
}

func (s *roomSnapshot) toRoom() *Room {
	players := s.Players
	if players == nil {
		players = []Player{}
	}
	status := s.Status
	if status == "" {
		status = RoomStatusOffline
	}
	return &Room{
		Code:        s.Code,
		Players:     players,
		LastUpdated: time.UnixMilli(s.LastUpdated),
		Status:      status,
		Timer:       s.Timer,
	}
}

func decodeLegacy(data []byte) (*Room, error) {
	var snap legacySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	players := make([]Player, 0, len(snap.Players))
	for _, lp := range snap.Players {
		identity := PlayerIdentity{ID: lp.UserID, Source: IdentityClient}
		if lp.UserID == "" || lp.UserID == lp.ID {
			// Original fell back to the socket id when the client supplied
			// no persistent id
			identity = PlayerIdentity{ID: lp.ID, Source: IdentityConnection}
		}
		players = append(players, Player{
			ConnectionID: lp.ID,
			Identity:     identity,
			DisplayName:  lp.Nickname,
			RoomCode:     lp.RoomCode,
			IsPrivate:    lp.IsSecret,
		})
	}

	status := snap.Status
	if status == "" {
		status = RoomStatusOffline
	}

	return &Room{
		Code:        snap.Code,
		Players:     players,
		LastUpdated: time.UnixMilli(snap.LastUpdated),
		Status:      status,
		Timer: Timer{
			Running:   snap.TimerRunning,
			StartedAt: snap.TimerStart,
			ElapsedMs: snap.TimerElapsed,
		},
	}, nil
}
