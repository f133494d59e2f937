// Package ws holds the websocket connection registry and the notifier
// adapter built on it. The registry is process-wide with explicit init and
// shutdown; handlers register connections, the notifier pushes to them.
package ws

import (
	"sync"

	"github.com/rs/zerolog"
)

// Conn is the subset of a websocket connection the registry needs. Satisfied
// by *websocket.Conn.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Registry tracks the single active match-notification connection per user.
// A reconnect replaces (and closes) the previous connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
	log   zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		conns: make(map[string]Conn),
		log:   logger.With().Str("component", "ws-registry").Logger(),
	}
}

// Register binds a user to a connection, closing any previous one.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	previous := r.conns[userID]
	r.conns[userID] = conn
	r.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	r.log.Debug().Str("user", userID).Msg("connection registered")
}

// Unregister drops the user's connection, but only if it is still the one
// being removed; a newer connection from a reconnect stays registered.
func (r *Registry) Unregister(userID string, conn Conn) {
	r.mu.Lock()
	current, ok := r.conns[userID]
	removed := ok && current == conn
	if removed {
		delete(r.conns, userID)
	}
	r.mu.Unlock()

	if removed {
		r.log.Debug().Str("user", userID).Msg("connection unregistered")
	}
}

// Send writes v as JSON to the user's connection. Sending to a user with no
// connection is a silent no-op; reported as (false, nil).
func (r *Registry) Send(userID string, v interface{}) (bool, error) {
	r.mu.RLock()
	conn, ok := r.conns[userID]
	r.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := conn.WriteJSON(v); err != nil {
		return true, err
	}
	return true, nil
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Shutdown closes every registered connection and empties the registry.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]Conn)
	r.mu.Unlock()

	for userID, conn := range conns {
		if err := conn.Close(); err != nil {
			r.log.Debug().Err(err).Str("user", userID).Msg("close on shutdown failed")
		}
	}
}
