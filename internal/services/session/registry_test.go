package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseboard/caseboard/internal/model"
)

func TestRegistryBindAndLookup(t *testing.T) {
	registry := NewRegistry()

	registry.Bind("conn-1", Binding{
		RoomCode:    "AB12",
		Identity:    model.PlayerIdentity{ID: "u1", Source: model.IdentityClient},
		DisplayName: "Ana",
	})

	binding, ok := registry.Lookup("conn-1")
	require.True(t, ok)
	assert.Equal(t, model.RoomCode("AB12"), binding.RoomCode)
	assert.Equal(t, "Ana", binding.DisplayName)
	assert.Equal(t, 1, registry.Len())

	_, ok = registry.Lookup("conn-2")
	assert.False(t, ok)
}

func TestRegistryBindReplaces(t *testing.T) {
	registry := NewRegistry()

	registry.Bind("conn-1", Binding{RoomCode: "AB12", DisplayName: "Ana"})
	registry.Bind("conn-1", Binding{RoomCode: "CD34", DisplayName: "Ana"})

	binding, ok := registry.Lookup("conn-1")
	require.True(t, ok)
	assert.Equal(t, model.RoomCode("CD34"), binding.RoomCode)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryUnbind(t *testing.T) {
	registry := NewRegistry()

	registry.Bind("conn-1", Binding{RoomCode: "AB12"})
	registry.Unbind("conn-1")

	_, ok := registry.Lookup("conn-1")
	assert.False(t, ok)
	assert.Zero(t, registry.Len())

	// Unbinding twice is harmless
	registry.Unbind("conn-1")
}
