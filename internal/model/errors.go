package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound = errors.New("room not found")

	// ErrCodeSpaceExhausted is the only storage failure surfaced to callers:
	// unique code generation ran out of attempts
	ErrCodeSpaceExhausted = errors.New("could not allocate a room code")

	// Snapshot errors
	ErrSnapshotCorrupt            = errors.New("room snapshot is corrupt")
	ErrSnapshotVersionUnsupported = errors.New("room snapshot version not supported")
)
