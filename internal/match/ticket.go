package match

import (
	"fmt"
	"time"

	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

// Ticket records a user's intent to be matched within one MBTI partition.
// Tickets are immutable after creation; two tickets are the same entry iff
// their UserID is equal.
type Ticket struct {
	UserID    string    `json:"user_id"`
	MBTI      mbti.MBTI `json:"mbti"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTicket validates and builds a ticket stamped with the current time.
func NewTicket(userID string, m mbti.MBTI) (Ticket, error) {
	if userID == "" {
		return Ticket{}, fmt.Errorf("user id is required")
	}
	if !mbti.IsValid(m) {
		return Ticket{}, fmt.Errorf("invalid MBTI %q", m)
	}
	return Ticket{
		UserID:    userID,
		MBTI:      m,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Equal compares tickets by identity (UserID only).
func (t Ticket) Equal(other Ticket) bool {
	return t.UserID == other.UserID
}
