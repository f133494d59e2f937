// Package chat keeps the in-process chat room registry. The match
// coordinator creates rooms through it (match.RoomCreator); the chat
// websocket handler joins members and broadcasts frames.
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/topblame/ekani-crew-ai-server/internal/match"
	"github.com/topblame/ekani-crew-ai-server/internal/ws"
)

// Room is one chat room with its live member connections.
type Room struct {
	ID        string
	Users     []match.Participant
	CreatedAt time.Time

	mu      sync.RWMutex
	members map[ws.Conn]struct{}
}

// Manager tracks chat rooms for the lifetime of the process. A user may be a
// member of several rooms at once.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	log   zerolog.Logger
}

func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
		log:   logger.With().Str("component", "chat").Logger(),
	}
}

// Create registers a room. Idempotent on room id: recreating an existing
// room is a no-op, so a retried call after a transient failure is safe.
func (m *Manager) Create(_ context.Context, room match.Room) error {
	if room.RoomID == "" {
		return fmt.Errorf("room id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[room.RoomID]; exists {
		return nil
	}

	m.rooms[room.RoomID] = &Room{
		ID:        room.RoomID,
		Users:     append([]match.Participant(nil), room.Users...),
		CreatedAt: room.CreatedAt,
		members:   make(map[ws.Conn]struct{}),
	}

	m.log.Info().Str("room_id", room.RoomID).Int("users", len(room.Users)).Msg("chat room created")
	return nil
}

// Get returns the room, or nil when unknown.
func (m *Manager) Get(roomID string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[roomID]
}

// Join adds a live connection to the room. Returns false for unknown rooms.
func (m *Manager) Join(roomID string, conn ws.Conn) bool {
	room := m.Get(roomID)
	if room == nil {
		return false
	}

	room.mu.Lock()
	room.members[conn] = struct{}{}
	room.mu.Unlock()
	return true
}

// Leave drops a connection from the room.
func (m *Manager) Leave(roomID string, conn ws.Conn) {
	room := m.Get(roomID)
	if room == nil {
		return
	}

	room.mu.Lock()
	delete(room.members, conn)
	room.mu.Unlock()
}

// Broadcast writes v to every member connection of the room. Write failures
// are logged, not surfaced; a dead member is cleaned up on its read loop.
func (m *Manager) Broadcast(roomID string, v interface{}) {
	room := m.Get(roomID)
	if room == nil {
		return
	}

	room.mu.RLock()
	conns := make([]ws.Conn, 0, len(room.members))
	for conn := range room.members {
		conns = append(conns, conn)
	}
	room.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(v); err != nil {
			m.log.Warn().Err(err).Str("room_id", roomID).Msg("broadcast write failed")
		}
	}
}

// MemberCount reports the number of live connections in the room.
func (m *Manager) MemberCount(roomID string) int {
	room := m.Get(roomID)
	if room == nil {
		return 0
	}

	room.mu.RLock()
	defer room.mu.RUnlock()
	return len(room.members)
}
