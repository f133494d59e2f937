package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/topblame/ekani-crew-ai-server/internal/match"
	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

type stateRecord struct {
	state     match.UserState
	expiresAt time.Time // zero means no expiry
}

// StateStore is a thread-safe in-memory match.StateStore with lazy TTL
// expiry on MATCHED records.
type StateStore struct {
	mu      sync.Mutex
	records map[string]stateRecord
	now     func() time.Time
}

func NewStateStore() *StateStore {
	return &StateStore{
		records: make(map[string]stateRecord),
		now:     time.Now,
	}
}

// get returns the live record for userID, dropping it if expired.
func (s *StateStore) get(userID string) *match.UserState {
	rec, ok := s.records[userID]
	if !ok {
		return nil
	}
	if !rec.expiresAt.IsZero() && s.now().After(rec.expiresAt) {
		delete(s.records, userID)
		return nil
	}
	state := rec.state
	return &state
}

func (s *StateStore) Get(_ context.Context, userID string) (*match.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(userID), nil
}

func (s *StateStore) SetQueued(_ context.Context, userID string, m mbti.MBTI) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[userID] = stateRecord{
		state: match.UserState{Status: match.StatusQueued, MBTI: m},
	}
	return nil
}

func (s *StateStore) SetMatched(_ context.Context, userID string, m mbti.MBTI, roomID, partnerID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[userID] = stateRecord{
		state: match.UserState{
			Status:    match.StatusMatched,
			MBTI:      m,
			RoomID:    roomID,
			PartnerID: partnerID,
		},
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *StateStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, userID)
	return nil
}

func (s *StateStore) IsAvailable(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.get(userID)
	return state == nil || state.Status != match.StatusMatched, nil
}
