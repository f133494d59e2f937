package match_test

import (
	"context"
	"errors"
	"sync"

	"github.com/topblame/ekani-crew-ai-server/internal/match"
)

// recordingRoomCreator captures created rooms; optionally fails every call.
type recordingRoomCreator struct {
	mu    sync.Mutex
	rooms []match.Room
	fail  error
	calls int
}

func (r *recordingRoomCreator) Create(_ context.Context, room match.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.fail != nil {
		return r.fail
	}
	for _, existing := range r.rooms {
		if existing.RoomID == room.RoomID {
			return nil // idempotent on room id
		}
	}
	r.rooms = append(r.rooms, room)
	return nil
}

func (r *recordingRoomCreator) created() []match.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]match.Room(nil), r.rooms...)
}

// recordingNotifier captures notifications per user; optionally fails.
type recordingNotifier struct {
	mu       sync.Mutex
	notified map[string]match.Notification
	fail     error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{notified: make(map[string]match.Notification)}
}

func (n *recordingNotifier) NotifyMatchSuccess(_ context.Context, userID string, notification match.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fail != nil {
		return n.fail
	}
	n.notified[userID] = notification
	return nil
}

func (n *recordingNotifier) sentTo(userID string) (match.Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	notification, ok := n.notified[userID]
	return notification, ok
}

var errBoom = errors.New("boom")
