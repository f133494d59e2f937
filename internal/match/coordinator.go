package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

// DefaultMatchTTL bounds how long a MATCHED record blocks re-pairing before
// it is treated as absent again.
const DefaultMatchTTL = 60 * time.Second

// Coordinator is the top-level use case driving RequestMatch and CancelMatch
// across the queue, state store, chat-room creator and notifier ports.
type Coordinator struct {
	queue    Queue
	states   StateStore
	rooms    RoomCreator
	notifier Notifier
	finder   *Finder
	matchTTL time.Duration
	log      zerolog.Logger
}

func NewCoordinator(queue Queue, states StateStore, rooms RoomCreator, notifier Notifier, matchTTL time.Duration, logger zerolog.Logger) *Coordinator {
	if matchTTL <= 0 {
		matchTTL = DefaultMatchTTL
	}
	return &Coordinator{
		queue:    queue,
		states:   states,
		rooms:    rooms,
		notifier: notifier,
		finder:   NewFinder(queue),
		matchTTL: matchTTL,
		log:      logger.With().Str("component", "coordinator").Logger(),
	}
}

// RequestMatch pairs the user with a compatible waiting partner, or parks
// them in their MBTI partition until a later attempt finds them.
func (c *Coordinator) RequestMatch(ctx context.Context, userID string, m mbti.MBTI, level int) (Result, error) {
	// Re-entry check: a user with an unexpired match gets their existing room
	// back instead of a new search.
	state, err := c.getState(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("read state for %s: %w", userID, err)
	}
	if state != nil && state.Status == StatusMatched {
		return alreadyMatchedResult(m, state.RoomID, state.PartnerID), nil
	}

	// Self-cleanup: drop any previous entry so a re-request with a different
	// level starts clean.
	if inQueue, err := c.queue.Contains(ctx, userID, m); err != nil {
		return Result{}, fmt.Errorf("check queue membership for %s: %w", userID, err)
	} else if inQueue {
		if _, err := c.queue.Cancel(ctx, userID, m); err != nil {
			return Result{}, fmt.Errorf("cancel stale entry for %s: %w", userID, err)
		}
	}

	ticket, err := NewTicket(userID, m)
	if err != nil {
		return Result{}, err
	}

	partner, err := c.finder.FindPartner(ctx, ticket, level)
	if err != nil {
		return Result{}, fmt.Errorf("find partner for %s: %w", userID, err)
	}

	if partner != nil {
		// Availability gate: the partner may have been matched elsewhere in
		// the race window between their enqueue and this dequeue.
		available, err := c.isAvailable(ctx, partner.UserID)
		if err != nil {
			c.log.Warn().Err(err).Str("partner", partner.UserID).
				Msg("availability check failed, treating partner as unavailable")
			available = false
		}
		if available {
			return c.completeMatch(ctx, ticket, *partner)
		}
		// The dequeued ticket is discarded; the partner will re-request.
		c.log.Info().Str("partner", partner.UserID).
			Msg("partner no longer available, requeueing requester")
	}

	return c.enqueueRequester(ctx, ticket)
}

// completeMatch runs the pair-success path: room creation first (fatal on
// failure), then best-effort state writes and partner notification.
func (c *Coordinator) completeMatch(ctx context.Context, mine Ticket, partner Ticket) (Result, error) {
	roomID := uuid.New().String()
	now := time.Now().UTC()

	room := Room{
		RoomID: roomID,
		Users: []Participant{
			{UserID: mine.UserID, MBTI: mine.MBTI},
			{UserID: partner.UserID, MBTI: partner.MBTI},
		},
		CreatedAt: now,
	}

	// Create is idempotent on roomID, so one retry is safe.
	if err := withRetry(ctx, func() error { return c.rooms.Create(ctx, room) }); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRoomCreation, err)
	}

	// The room exists, so from here on the match is considered accomplished;
	// state and notification failures are logged, never surfaced.
	if err := c.states.SetMatched(ctx, mine.UserID, mine.MBTI, roomID, partner.UserID, c.matchTTL); err != nil {
		c.log.Error().Err(err).Str("user", mine.UserID).Msg("set matched state failed")
	}
	if err := c.states.SetMatched(ctx, partner.UserID, partner.MBTI, roomID, mine.UserID, c.matchTTL); err != nil {
		c.log.Error().Err(err).Str("user", partner.UserID).Msg("set matched state failed")
	}

	notification := Notification{
		Type:      "match_success",
		RoomID:    roomID,
		MyMBTI:    partner.MBTI,
		Partner:   Participant{UserID: mine.UserID, MBTI: mine.MBTI},
		MatchedAt: now,
	}
	if err := c.notifier.NotifyMatchSuccess(ctx, partner.UserID, notification); err != nil {
		c.log.Warn().Err(err).Str("user", partner.UserID).Msg("match notification failed")
	}

	c.log.Info().
		Str("room_id", roomID).
		Str("user", mine.UserID).
		Str("partner", partner.UserID).
		Msg("match completed")

	return matchedResult(mine.MBTI, roomID, Participant{UserID: partner.UserID, MBTI: partner.MBTI}), nil
}

func (c *Coordinator) enqueueRequester(ctx context.Context, ticket Ticket) (Result, error) {
	status := StatusWaitingResult
	if err := c.queue.Enqueue(ctx, ticket); err != nil {
		if errors.Is(err, ErrAlreadyQueued) {
			status = StatusAlreadyWaiting
		} else {
			return Result{}, fmt.Errorf("enqueue %s: %w", ticket.UserID, err)
		}
	} else {
		if err := c.states.SetQueued(ctx, ticket.UserID, ticket.MBTI); err != nil {
			// Queue membership is the authority for cancels; a missing QUEUED
			// record only costs observability.
			c.log.Error().Err(err).Str("user", ticket.UserID).Msg("set queued state failed")
		}
	}

	waitCount, err := c.queue.Size(ctx, ticket.MBTI)
	if err != nil {
		c.log.Warn().Err(err).Stringer("mbti", ticket.MBTI).Msg("queue size read failed")
		waitCount = 0
	}

	if status == StatusAlreadyWaiting {
		return alreadyWaitingResult(ticket.MBTI, waitCount), nil
	}
	return waitingResult(ticket.MBTI, waitCount), nil
}

// CancelMatch removes the user's waiting entry and clears their state record.
func (c *Coordinator) CancelMatch(ctx context.Context, userID string, m mbti.MBTI) (CancelResult, error) {
	removed, err := c.queue.Cancel(ctx, userID, m)
	if err != nil {
		return CancelResult{}, fmt.Errorf("cancel %s: %w", userID, err)
	}

	// Clear state regardless of queue membership so a stale record never
	// blocks a future request.
	if err := c.states.Clear(ctx, userID); err != nil {
		c.log.Error().Err(err).Str("user", userID).Msg("clear state failed")
	}

	if removed {
		return CancelResult{Status: StatusCancelled, Message: "match request cancelled"}, nil
	}
	return CancelResult{Status: StatusCancelFailed, Message: "user not found in the waiting queue"}, nil
}

// WaitingCount reports the number of valid waiters in a partition.
func (c *Coordinator) WaitingCount(ctx context.Context, m mbti.MBTI) (int, error) {
	return c.queue.Size(ctx, m)
}

func (c *Coordinator) getState(ctx context.Context, userID string) (*UserState, error) {
	var state *UserState
	err := withRetry(ctx, func() error {
		var err error
		state, err = c.states.Get(ctx, userID)
		return err
	})
	return state, err
}

func (c *Coordinator) isAvailable(ctx context.Context, userID string) (bool, error) {
	var available bool
	err := withRetry(ctx, func() error {
		var err error
		available, err = c.states.IsAvailable(ctx, userID)
		return err
	})
	return available, err
}

// withRetry runs an idempotent port call, retrying exactly once on failure
// unless the context is already done.
func withRetry(ctx context.Context, op func() error) error {
	if err := op(); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return op()
	}
	return nil
}
