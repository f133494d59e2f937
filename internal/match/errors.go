package match

import "errors"

var (
	// ErrAlreadyQueued is returned by Queue.Enqueue when the user already has
	// a valid entry in that partition. Rendered to callers as the
	// already_waiting result, never as a transport error.
	ErrAlreadyQueued = errors.New("user is already waiting in this queue")

	// ErrRoomCreation wraps a chat-room creation failure. It is fatal to the
	// enclosing request: without a room there is no match.
	ErrRoomCreation = errors.New("failed to create chat room")
)
