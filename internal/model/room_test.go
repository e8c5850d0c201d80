package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByIdentity(t *testing.T) {
	room := sampleRoom()

	player := room.FindByIdentity("u1")
	require.NotNil(t, player)
	assert.Equal(t, "Ana", player.DisplayName)

	assert.Nil(t, room.FindByIdentity("nope"))
}

func TestRemoveByConnectionRemovesExactlyOne(t *testing.T) {
	room := sampleRoom()

	assert.True(t, room.RemoveByConnection("conn-1"))
	require.Len(t, room.Players, 1)
	assert.Equal(t, "conn-2", room.Players[0].ConnectionID)

	assert.False(t, room.RemoveByConnection("conn-1"))
	assert.Len(t, room.Players, 1)
}

func TestRetainConnections(t *testing.T) {
	room := sampleRoom()

	dropped := room.RetainConnections(map[string]bool{"conn-2": true})
	assert.Equal(t, 1, dropped)
	require.Len(t, room.Players, 1)
	assert.Equal(t, "conn-2", room.Players[0].ConnectionID)

	// Everything live: nothing dropped
	assert.Zero(t, room.RetainConnections(map[string]bool{"conn-2": true}))
}

func TestCloneIsDeep(t *testing.T) {
	room := sampleRoom()
	clone := room.Clone()

	require.Equal(t, room, clone)

	clone.Players[0].DisplayName = "Mallory"
	*clone.Timer.StartedAt = 1

	assert.Equal(t, "Ana", room.Players[0].DisplayName)
	assert.Equal(t, int64(1700000000000), *room.Timer.StartedAt)
}

func TestResetForReuse(t *testing.T) {
	room := sampleRoom()
	now := time.UnixMilli(1800000000000)

	room.ResetForReuse(now)

	assert.Empty(t, room.Players)
	assert.Equal(t, RoomStatusOnline, room.Status)
	assert.Equal(t, now, room.LastUpdated)
	assert.Equal(t, Timer{}, room.Timer)
}
