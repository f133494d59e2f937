package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/topblame/ekani-crew-ai-server/internal/match"
	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

const stateKeyPrefix = "match:state:"

// StateStore is a Redis-backed match.StateStore. MATCHED records rely on
// Redis key expiry for their TTL; QUEUED records have none.
type StateStore struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewStateStore(rdb *redis.Client, logger zerolog.Logger) *StateStore {
	return &StateStore{
		rdb: rdb,
		log: logger.With().Str("component", "redis-state").Logger(),
	}
}

func stateKey(userID string) string { return stateKeyPrefix + userID }

func (s *StateStore) Get(ctx context.Context, userID string) (*match.UserState, error) {
	data, err := s.rdb.Get(ctx, stateKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state %s: %w", userID, err)
	}

	var state match.UserState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("undecodable state record, treating as absent")
		return nil, nil
	}
	if state.Status == match.StatusMatched && state.RoomID == "" {
		s.log.Error().Str("user", userID).Msg("MATCHED state without room id, treating as absent")
		return nil, nil
	}
	return &state, nil
}

func (s *StateStore) SetQueued(ctx context.Context, userID string, m mbti.MBTI) error {
	return s.set(ctx, userID, match.UserState{Status: match.StatusQueued, MBTI: m}, 0)
}

func (s *StateStore) SetMatched(ctx context.Context, userID string, m mbti.MBTI, roomID, partnerID string, ttl time.Duration) error {
	state := match.UserState{
		Status:    match.StatusMatched,
		MBTI:      m,
		RoomID:    roomID,
		PartnerID: partnerID,
	}
	return s.set(ctx, userID, state, ttl)
}

func (s *StateStore) set(ctx context.Context, userID string, state match.UserState, ttl time.Duration) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("serialize state: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKey(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set state %s: %w", userID, err)
	}
	return nil
}

func (s *StateStore) Clear(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear state %s: %w", userID, err)
	}
	return nil
}

func (s *StateStore) IsAvailable(ctx context.Context, userID string) (bool, error) {
	state, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return state == nil || state.Status != match.StatusMatched, nil
}
