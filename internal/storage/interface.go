package storage

import (
	"context"

	"github.com/caseboard/caseboard/internal/model"
)

// Record is one durable row: a room code and its serialized snapshot
type Record struct {
	Code model.RoomCode
	Data []byte
}

// RoomStore is the durable backing store for room snapshots. Values are
// opaque blobs; serialization belongs to the caller. Writes are
// insert-or-replace and must be idempotent.
type RoomStore interface {
	// Put upserts the snapshot for a room code
	Put(ctx context.Context, code model.RoomCode, data []byte) error

	// Get returns the snapshot for a room code, or model.ErrRoomNotFound
	Get(ctx context.Context, code model.RoomCode) ([]byte, error)

	// Delete removes the snapshot for a room code; deleting an absent code
	// is not an error
	Delete(ctx context.Context, code model.RoomCode) error

	// All returns every stored record, used to warm the cache at startup
	All(ctx context.Context) ([]Record, error)
}
