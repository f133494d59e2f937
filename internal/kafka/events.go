package kafka

import (
	"time"

	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

// EventType represents the type of match event
type EventType string

const (
	EventMatchRequested EventType = "match_requested"
	EventQueueJoined    EventType = "queue_joined"
	EventQueueLeft      EventType = "queue_left"
	EventMatchMade      EventType = "match_made"
	EventMatchCancelled EventType = "match_cancelled"
)

// BaseEvent is the common structure shared by all match events.
type BaseEvent struct {
	EventType EventType `json:"event_type"`
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  Metadata  `json:"metadata"`
}

// Metadata carries additional context for events.
type Metadata struct {
	ServerID    string            `json:"server_id,omitempty"`
	Version     string            `json:"version,omitempty"`
	Environment string            `json:"environment,omitempty"`
	Custom      map[string]string `json:"custom,omitempty"`
}

// UserInfo identifies a user inside an event.
type UserInfo struct {
	UserID string    `json:"user_id"`
	MBTI   mbti.MBTI `json:"mbti"`
}

// MatchRequestedEvent records an incoming match request and its outcome tag.
type MatchRequestedEvent struct {
	BaseEvent
	User   UserInfo `json:"user"`
	Level  int      `json:"level"`
	Result string   `json:"result"`
}

// QueueJoinedEvent records a user entering a waiting partition.
type QueueJoinedEvent struct {
	BaseEvent
	User      UserInfo `json:"user"`
	WaitCount int      `json:"wait_count"`
}

// QueueLeftEvent records a user leaving a partition without being matched.
type QueueLeftEvent struct {
	BaseEvent
	User   UserInfo `json:"user"`
	Reason string   `json:"reason"`
}

// MatchMadeEvent records a completed pair.
type MatchMadeEvent struct {
	BaseEvent
	RoomID    string     `json:"room_id"`
	Requester UserInfo   `json:"requester"`
	Partner   UserInfo   `json:"partner"`
	Level     int        `json:"level"`
	Users     []UserInfo `json:"users"`
}

// MatchCancelledEvent records a cancellation attempt.
type MatchCancelledEvent struct {
	BaseEvent
	User    UserInfo `json:"user"`
	Removed bool     `json:"removed"`
}
