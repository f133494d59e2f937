package match_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topblame/ekani-crew-ai-server/internal/match"
	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
	"github.com/topblame/ekani-crew-ai-server/internal/memstore"
)

type fixture struct {
	queue    *memstore.Queue
	states   *memstore.StateStore
	rooms    *recordingRoomCreator
	notifier *recordingNotifier
	coord    *match.Coordinator
}

func newFixture() *fixture {
	queue := memstore.NewQueue()
	states := memstore.NewStateStore()
	rooms := &recordingRoomCreator{}
	notifier := newRecordingNotifier()

	return &fixture{
		queue:    queue,
		states:   states,
		rooms:    rooms,
		notifier: notifier,
		coord:    match.NewCoordinator(queue, states, rooms, notifier, time.Minute, zerolog.Nop()),
	}
}

func (f *fixture) enqueue(t *testing.T, userID string, m mbti.MBTI) {
	t.Helper()
	require.NoError(t, f.queue.Enqueue(context.Background(), mustTicket(t, userID, m)))
	require.NoError(t, f.states.SetQueued(context.Background(), userID, m))
}

func TestRequestMatchWaitsThenMatchesOnWiderLevel(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.enqueue(t, "partner_intp", mbti.INTP)

	// Level 1: INTP is not a best match for INFP, so the requester waits.
	result, err := f.coord.RequestMatch(ctx, "me", mbti.INFP, 1)
	require.NoError(t, err)
	assert.Equal(t, match.StatusWaitingResult, result.Status)
	assert.Equal(t, mbti.INFP, result.MyMBTI)
	assert.Equal(t, 1, result.WaitCount)

	// Level 2 re-request: the stale INFP entry is cleaned up, then INTP is
	// found in the good ring.
	result, err = f.coord.RequestMatch(ctx, "me", mbti.INFP, 2)
	require.NoError(t, err)
	assert.Equal(t, match.StatusMatchedResult, result.Status)
	require.NotNil(t, result.Partner)
	assert.Equal(t, "partner_intp", result.Partner.UserID)
	assert.Equal(t, mbti.INTP, result.Partner.MBTI)
	assert.NotEmpty(t, result.RoomID)

	// Re-requesting did not leave a duplicate INFP entry behind.
	size, err := f.queue.Size(ctx, mbti.INFP)
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	rooms := f.rooms.created()
	require.Len(t, rooms, 1)
	assert.Equal(t, result.RoomID, rooms[0].RoomID)
	assert.Len(t, rooms[0].Users, 2)

	notification, ok := f.notifier.sentTo("partner_intp")
	require.True(t, ok)
	assert.Equal(t, result.RoomID, notification.RoomID)
	assert.Equal(t, "me", notification.Partner.UserID)
	assert.Equal(t, mbti.INTP, notification.MyMBTI)
}

func TestRequestMatchWorstCaseAtLevelFour(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.enqueue(t, "partner_istj", mbti.ISTJ)

	for level := 1; level <= 3; level++ {
		result, err := f.coord.RequestMatch(ctx, "me", mbti.INFP, level)
		require.NoError(t, err)
		// First attempt queues; repeats are self-cleaned and re-queued.
		assert.Equal(t, match.StatusWaitingResult, result.Status, "level %d", level)
	}

	result, err := f.coord.RequestMatch(ctx, "me", mbti.INFP, 4)
	require.NoError(t, err)
	assert.Equal(t, match.StatusMatchedResult, result.Status)
	require.NotNil(t, result.Partner)
	assert.Equal(t, "partner_istj", result.Partner.UserID)
}

func TestRequestMatchSkipsCancelledGhost(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.enqueue(t, "ghost", mbti.ENFJ)
	cancel, err := f.coord.CancelMatch(ctx, "ghost", mbti.ENFJ)
	require.NoError(t, err)
	assert.Equal(t, match.StatusCancelled, cancel.Status)

	f.enqueue(t, "real", mbti.ENFJ)

	result, err := f.coord.RequestMatch(ctx, "me", mbti.INFP, 1)
	require.NoError(t, err)
	assert.Equal(t, match.StatusMatchedResult, result.Status)
	require.NotNil(t, result.Partner)
	assert.Equal(t, "real", result.Partner.UserID)

	_, ghostNotified := f.notifier.sentTo("ghost")
	assert.False(t, ghostNotified)

	size, err := f.queue.Size(ctx, mbti.ENFJ)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestRequestMatchENFJISFPException(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.enqueue(t, "isfp_user", mbti.ISFP)

	result, err := f.coord.RequestMatch(ctx, "enfj_user", mbti.ENFJ, 1)
	require.NoError(t, err)
	assert.Equal(t, match.StatusMatchedResult, result.Status)
	require.NotNil(t, result.Partner)
	assert.Equal(t, "isfp_user", result.Partner.UserID)
}

func TestRequestMatchReEntryReturnsExistingRoom(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.enqueue(t, "b", mbti.ENFJ)

	first, err := f.coord.RequestMatch(ctx, "a", mbti.INFP, 1)
	require.NoError(t, err)
	require.Equal(t, match.StatusMatchedResult, first.Status)

	// Before the MATCHED record expires, a repeat request short-circuits.
	again, err := f.coord.RequestMatch(ctx, "a", mbti.INFP, 1)
	require.NoError(t, err)
	assert.Equal(t, match.StatusAlreadyMatched, again.Status)
	assert.Equal(t, first.RoomID, again.RoomID)
	assert.Equal(t, "b", again.PartnerID)

	// No second room, no new queue entry.
	assert.Len(t, f.rooms.created(), 1)
	size, err := f.queue.Size(ctx, mbti.INFP)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestRequestMatchSkipsUnavailablePartner(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// Partner is waiting in the queue but was matched elsewhere in the race
	// window: their MATCHED state blocks the pair.
	f.enqueue(t, "taken", mbti.ENFJ)
	require.NoError(t, f.states.SetMatched(ctx, "taken", mbti.ENFJ, "other-room", "someone", time.Minute))

	result, err := f.coord.RequestMatch(ctx, "me", mbti.INFP, 1)
	require.NoError(t, err)
	assert.Equal(t, match.StatusWaitingResult, result.Status)

	// The dequeued ticket is discarded, the requester is parked.
	assert.Empty(t, f.rooms.created())
	size, err := f.queue.Size(ctx, mbti.INFP)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestRequestMatchBothStatesSet(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.enqueue(t, "b", mbti.ENTJ)

	result, err := f.coord.RequestMatch(ctx, "a", mbti.INFP, 1)
	require.NoError(t, err)
	require.Equal(t, match.StatusMatchedResult, result.Status)

	for user, partner := range map[string]string{"a": "b", "b": "a"} {
		state, err := f.states.Get(ctx, user)
		require.NoError(t, err)
		require.NotNil(t, state, "user %s", user)
		assert.Equal(t, match.StatusMatched, state.Status)
		assert.Equal(t, result.RoomID, state.RoomID)
		assert.Equal(t, partner, state.PartnerID)
	}
}

func TestRequestMatchNotifierFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.notifier.fail = errBoom

	f.enqueue(t, "b", mbti.ENTJ)

	result, err := f.coord.RequestMatch(ctx, "a", mbti.INFP, 1)
	require.NoError(t, err)
	assert.Equal(t, match.StatusMatchedResult, result.Status)
	assert.Len(t, f.rooms.created(), 1)
}

func TestRequestMatchRoomCreationFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.rooms.fail = errBoom

	f.enqueue(t, "b", mbti.ENTJ)

	_, err := f.coord.RequestMatch(ctx, "a", mbti.INFP, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, match.ErrRoomCreation)

	// Create is retried once before giving up.
	assert.Equal(t, 2, f.rooms.calls)
}

// blindQueue hides queue membership from the coordinator's self-cleanup so a
// duplicate enqueue reaches the queue itself, as it can under concurrency.
type blindQueue struct{ match.Queue }

func (b blindQueue) Contains(context.Context, string, mbti.MBTI) (bool, error) {
	return false, nil
}

func TestRequestMatchAlreadyWaiting(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	coord := match.NewCoordinator(blindQueue{f.queue}, f.states, f.rooms, f.notifier, time.Minute, zerolog.Nop())

	result, err := coord.RequestMatch(ctx, "me", mbti.INFP, 1)
	require.NoError(t, err)
	require.Equal(t, match.StatusWaitingResult, result.Status)

	result, err = coord.RequestMatch(ctx, "me", mbti.INFP, 1)
	require.NoError(t, err)
	assert.Equal(t, match.StatusAlreadyWaiting, result.Status)
	assert.Equal(t, 1, result.WaitCount)
}

func TestRequestMatchSelfCleanupAllowsLevelChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	result, err := f.coord.RequestMatch(ctx, "me", mbti.INFP, 1)
	require.NoError(t, err)
	require.Equal(t, match.StatusWaitingResult, result.Status)

	// A repeat request is not rejected as a duplicate: the stale entry is
	// cancelled and a fresh ticket is enqueued.
	result, err = f.coord.RequestMatch(ctx, "me", mbti.INFP, 3)
	require.NoError(t, err)
	assert.Equal(t, match.StatusWaitingResult, result.Status)
	assert.Equal(t, 1, result.WaitCount)
}

func TestCancelMatchIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	result, err := f.coord.RequestMatch(ctx, "me", mbti.INFP, 1)
	require.NoError(t, err)
	require.Equal(t, match.StatusWaitingResult, result.Status)

	first, err := f.coord.CancelMatch(ctx, "me", mbti.INFP)
	require.NoError(t, err)
	assert.Equal(t, match.StatusCancelled, first.Status)

	second, err := f.coord.CancelMatch(ctx, "me", mbti.INFP)
	require.NoError(t, err)
	assert.Equal(t, match.StatusCancelFailed, second.Status)

	// State is cleared either way.
	state, err := f.states.Get(ctx, "me")
	require.NoError(t, err)
	assert.Nil(t, state)

	size, err := f.queue.Size(ctx, mbti.INFP)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestWaitingCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.enqueue(t, "a", mbti.ESFP)
	f.enqueue(t, "b", mbti.ESFP)

	count, err := f.coord.WaitingCount(ctx, mbti.ESFP)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
