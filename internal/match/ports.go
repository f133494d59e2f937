package match

import (
	"context"
	"time"

	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

// QueueSize pairs a partition with its current valid-entry count.
type QueueSize struct {
	MBTI mbti.MBTI
	Size int
}

// Queue is the 16-way partitioned waiting queue. Cancelled entries may linger
// in a partition's ordered sequence as ghosts; the membership set is the
// authoritative oracle and Size counts only the set.
type Queue interface {
	// Enqueue atomically adds the ticket to its partition. Returns
	// ErrAlreadyQueued if the user already has a valid entry there.
	Enqueue(ctx context.Context, t Ticket) error

	// DequeueHead pops the oldest valid ticket from the partition, discarding
	// ghosts along the way. Returns nil when the partition is empty.
	DequeueHead(ctx context.Context, m mbti.MBTI) (*Ticket, error)

	// Cancel removes the user from the partition's membership set only,
	// leaving the sequence entry to be collected lazily. Reports whether the
	// user was actually waiting.
	Cancel(ctx context.Context, userID string, m mbti.MBTI) (bool, error)

	// Size returns the count of valid entries in the partition.
	Size(ctx context.Context, m mbti.MBTI) (int, error)

	// SortedTargetsBySize reads all partition sizes in one round trip and
	// returns them sorted descending by size.
	SortedTargetsBySize(ctx context.Context, targets []mbti.MBTI) ([]QueueSize, error)

	// Contains reports whether the user has a valid entry in the partition.
	Contains(ctx context.Context, userID string, m mbti.MBTI) (bool, error)
}

// Status discriminates the per-user state record.
type Status string

const (
	StatusQueued  Status = "QUEUED"
	StatusMatched Status = "MATCHED"
)

// UserState is the per-user state record. Absence is modeled as a nil
// pointer from StateStore.Get.
type UserState struct {
	Status    Status    `json:"state"`
	MBTI      mbti.MBTI `json:"mbti"`
	RoomID    string    `json:"room_id,omitempty"`
	PartnerID string    `json:"partner_id,omitempty"`
}

// StateStore tracks per-user match state. MATCHED records expire after their
// TTL; an expired record reads back as absent.
type StateStore interface {
	Get(ctx context.Context, userID string) (*UserState, error)
	SetQueued(ctx context.Context, userID string, m mbti.MBTI) error
	SetMatched(ctx context.Context, userID string, m mbti.MBTI, roomID, partnerID string, ttl time.Duration) error
	Clear(ctx context.Context, userID string) error

	// IsAvailable reports whether the user can be paired right now: true for
	// absent or QUEUED, false for an unexpired MATCHED record.
	IsAvailable(ctx context.Context, userID string) (bool, error)
}

// Participant identifies one side of a chat room.
type Participant struct {
	UserID string    `json:"user_id"`
	MBTI   mbti.MBTI `json:"mbti"`
}

// Room describes a chat room to be created for a successful pair.
type Room struct {
	RoomID    string        `json:"room_id"`
	Users     []Participant `json:"users"`
	CreatedAt time.Time     `json:"created_at"`
}

// RoomCreator is the outbound chat-room contract. Create must be idempotent
// on RoomID.
type RoomCreator interface {
	Create(ctx context.Context, room Room) error
}

// Notification is the payload pushed to a waiting partner when their match
// succeeds.
type Notification struct {
	Type      string      `json:"type"`
	RoomID    string      `json:"room_id"`
	MyMBTI    mbti.MBTI   `json:"my_mbti"`
	Partner   Participant `json:"partner"`
	MatchedAt time.Time   `json:"matched_at"`
}

// Notifier delivers match-success notifications at most once to the user's
// currently connected session; delivery to an absent user is a silent no-op.
type Notifier interface {
	NotifyMatchSuccess(ctx context.Context, userID string, n Notification) error
}
