package ws

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/topblame/ekani-crew-ai-server/internal/match"
)

// Notifier delivers match-success payloads over the registry. Implements
// match.Notifier.
type Notifier struct {
	registry *Registry
	log      zerolog.Logger
}

func NewNotifier(registry *Registry, logger zerolog.Logger) *Notifier {
	return &Notifier{
		registry: registry,
		log:      logger.With().Str("component", "ws-notifier").Logger(),
	}
}

// NotifyMatchSuccess pushes the payload to the user's live connection.
// A user without a connection is skipped silently; a write failure is
// returned but the caller treats it as best-effort.
func (n *Notifier) NotifyMatchSuccess(_ context.Context, userID string, notification match.Notification) error {
	connected, err := n.registry.Send(userID, NewMessage(MsgMatchSuccess, notification))
	if err != nil {
		return fmt.Errorf("notify %s: %w", userID, err)
	}
	if !connected {
		n.log.Debug().Str("user", userID).Msg("user not connected, notification dropped")
	}
	return nil
}
