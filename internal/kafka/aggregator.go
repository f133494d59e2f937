package kafka

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/topblame/ekani-crew-ai-server/internal/database"
	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

// MetricsAggregator buffers completed matches and flushes them to Postgres
// in batches, together with the per-pair aggregate rows.
type MetricsAggregator struct {
	repo    *database.Repository
	mu      sync.Mutex
	pending []database.CompletedMatch
	log     zerolog.Logger
}

func NewMetricsAggregator(repo *database.Repository, logger zerolog.Logger) *MetricsAggregator {
	return &MetricsAggregator{
		repo: repo,
		log:  logger.With().Str("component", "aggregator").Logger(),
	}
}

// RecordMatch queues one completed match for the next flush.
func (a *MetricsAggregator) RecordMatch(event MatchMadeEvent, waitTime time.Duration) {
	record := database.CompletedMatch{
		RoomID:      event.RoomID,
		User1ID:     event.Requester.UserID,
		User1MBTI:   string(event.Requester.MBTI),
		User2ID:     event.Partner.UserID,
		User2MBTI:   string(event.Partner.MBTI),
		Level:       event.Level,
		WaitSeconds: waitTime.Seconds(),
		MatchedAt:   event.Timestamp,
	}

	a.mu.Lock()
	a.pending = append(a.pending, record)
	a.mu.Unlock()
}

// PendingCount reports buffered records awaiting a flush.
func (a *MetricsAggregator) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Flush writes all buffered records. Rows that fail are re-queued so a
// transient database outage loses nothing.
func (a *MetricsAggregator) Flush() error {
	a.mu.Lock()
	batch := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	var failed []database.CompletedMatch
	var firstErr error
	for _, record := range batch {
		if err := a.flushOne(record); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failed = append(failed, record)
		}
	}

	if len(failed) > 0 {
		a.mu.Lock()
		a.pending = append(failed, a.pending...)
		a.mu.Unlock()
		return fmt.Errorf("flushed %d/%d records: %w", len(batch)-len(failed), len(batch), firstErr)
	}

	a.log.Debug().Int("records", len(batch)).Msg("flushed match records")
	return nil
}

func (a *MetricsAggregator) flushOne(record database.CompletedMatch) error {
	if err := a.repo.SaveCompletedMatch(record); err != nil {
		return err
	}

	pair := PairKey(mbti.MBTI(record.User1MBTI), mbti.MBTI(record.User2MBTI))
	return a.repo.UpsertPairStat(pair, record.WaitSeconds, record.MatchedAt)
}
