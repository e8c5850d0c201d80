package redis

import (
	"fmt"

	"github.com/caseboard/caseboard/internal/model"
)

// Key prefix for all room data
const keyPrefix = "caseboard"

// roomKey returns the Redis key for a room snapshot
func roomKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

// roomKeyPattern matches every room snapshot key, for startup scans
func roomKeyPattern() string {
	return fmt.Sprintf("%s:room:*", keyPrefix)
}

// codeFromKey recovers the room code from a snapshot key
func codeFromKey(key string) model.RoomCode {
	prefix := fmt.Sprintf("%s:room:", keyPrefix)
	return model.RoomCode(key[len(prefix):])
}
