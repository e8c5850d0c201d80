package session

import (
	"sync"

	"github.com/caseboard/caseboard/internal/model"
)

// Binding maps a live connection back to its room and persistent identity.
// It exists purely for O(1) disconnect handling; the repository remains the
// source of truth for membership.
type Binding struct {
	RoomCode    model.RoomCode
	Identity    model.PlayerIdentity
	DisplayName string
}

// Registry is an in-memory map of connection id to binding. It holds no game
// state and is rebuilt naturally as clients rejoin after a restart.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[string]Binding),
	}
}

// Bind records the binding for a connection, replacing any previous one
func (r *Registry) Bind(connID string, binding Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[connID] = binding
}

// Lookup returns the binding for a connection, if any
func (r *Registry) Lookup(connID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	binding, ok := r.bindings[connID]
	return binding, ok
}

// Unbind removes the binding for a connection
func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, connID)
}

// Len returns the number of live bindings
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
