package memory

import (
	"context"
	"sync"

	"github.com/caseboard/caseboard/internal/model"
	"github.com/caseboard/caseboard/internal/storage"
)

// Storage is an in-memory implementation of the room store
type Storage struct {
	mu    sync.RWMutex
	rooms map[model.RoomCode][]byte
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms: make(map[model.RoomCode][]byte),
	}
}

var _ storage.RoomStore = (*Storage)(nil)

func (s *Storage) Put(ctx context.Context, code model.RoomCode, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob := make([]byte, len(data))
	copy(blob, data)
	s.rooms[code] = blob
	return nil
}

func (s *Storage) Get(ctx context.Context, code model.RoomCode) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.rooms[code]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	blob := make([]byte, len(data))
	copy(blob, data)
	return blob, nil
}

func (s *Storage) Delete(ctx context.Context, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	return nil
}

func (s *Storage) All(ctx context.Context) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]storage.Record, 0, len(s.rooms))
	for code, data := range s.rooms {
		blob := make([]byte, len(data))
		copy(blob, data)
		records = append(records, storage.Record{Code: code, Data: blob})
	}
	return records, nil
}
