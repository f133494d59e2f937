package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topblame/ekani-crew-ai-server/internal/match"
	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

func ticket(userID string, m mbti.MBTI) match.Ticket {
	return match.Ticket{UserID: userID, MBTI: m, CreatedAt: time.Now()}
}

func TestEnqueueRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()

	require.NoError(t, q.Enqueue(ctx, ticket("u1", mbti.INFP)))
	err := q.Enqueue(ctx, ticket("u1", mbti.INFP))
	assert.ErrorIs(t, err, match.ErrAlreadyQueued)

	size, err := q.Size(ctx, mbti.INFP)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestConcurrentEnqueueYieldsOneSuccess(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()

	const attempts = 32
	start := make(chan struct{})
	errs := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- q.Enqueue(ctx, ticket("u1", mbti.INFP))
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var successes, duplicates int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, match.ErrAlreadyQueued):
			duplicates++
		default:
			t.Fatalf("unexpected enqueue error: %v", err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, duplicates)

	size, err := q.Size(ctx, mbti.INFP)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestDequeueIsFIFOAmongValidTickets(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()

	require.NoError(t, q.Enqueue(ctx, ticket("a", mbti.ENFJ)))
	require.NoError(t, q.Enqueue(ctx, ticket("b", mbti.ENFJ)))
	require.NoError(t, q.Enqueue(ctx, ticket("c", mbti.ENFJ)))

	for _, want := range []string{"a", "b", "c"} {
		got, err := q.DequeueHead(ctx, mbti.ENFJ)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want, got.UserID)
	}

	empty, err := q.DequeueHead(ctx, mbti.ENFJ)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestCancelIsLazyAndSizeCountsTheSet(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()

	require.NoError(t, q.Enqueue(ctx, ticket("ghost", mbti.ENFJ)))
	require.NoError(t, q.Enqueue(ctx, ticket("real", mbti.ENFJ)))

	removed, err := q.Cancel(ctx, "ghost", mbti.ENFJ)
	require.NoError(t, err)
	assert.True(t, removed)

	// The sequence still holds the ghost entry, but size reports the set.
	size, err := q.Size(ctx, mbti.ENFJ)
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	// Dequeue skips the ghost and the ghost is never observable.
	got, err := q.DequeueHead(ctx, mbti.ENFJ)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "real", got.UserID)

	size, err = q.Size(ctx, mbti.ENFJ)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestCancelReportsMembership(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()

	removed, err := q.Cancel(ctx, "nobody", mbti.INTP)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, q.Enqueue(ctx, ticket("u1", mbti.INTP)))

	removed, err = q.Cancel(ctx, "u1", mbti.INTP)
	require.NoError(t, err)
	assert.True(t, removed)

	// Second cancel finds nothing.
	removed, err = q.Cancel(ctx, "u1", mbti.INTP)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestReEnqueueAfterCancel(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()

	require.NoError(t, q.Enqueue(ctx, ticket("u1", mbti.ISFJ)))
	_, err := q.Cancel(ctx, "u1", mbti.ISFJ)
	require.NoError(t, err)

	// A fresh enqueue after cancel is a new valid entry, even though the
	// old ghost is still in the sequence.
	require.NoError(t, q.Enqueue(ctx, ticket("u1", mbti.ISFJ)))

	got, err := q.DequeueHead(ctx, mbti.ISFJ)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
}

func TestContains(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()

	in, err := q.Contains(ctx, "u1", mbti.ESTP)
	require.NoError(t, err)
	assert.False(t, in)

	require.NoError(t, q.Enqueue(ctx, ticket("u1", mbti.ESTP)))

	in, err = q.Contains(ctx, "u1", mbti.ESTP)
	require.NoError(t, err)
	assert.True(t, in)
}

func TestSortedTargetsBySizeDescending(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()

	require.NoError(t, q.Enqueue(ctx, ticket("a", mbti.ENFJ)))
	require.NoError(t, q.Enqueue(ctx, ticket("b", mbti.ENTJ)))
	require.NoError(t, q.Enqueue(ctx, ticket("c", mbti.ENTJ)))

	sizes, err := q.SortedTargetsBySize(ctx, []mbti.MBTI{mbti.ENFJ, mbti.ENTJ, mbti.INTP})
	require.NoError(t, err)
	require.Len(t, sizes, 3)

	assert.Equal(t, match.QueueSize{MBTI: mbti.ENTJ, Size: 2}, sizes[0])
	assert.Equal(t, match.QueueSize{MBTI: mbti.ENFJ, Size: 1}, sizes[1])
	assert.Equal(t, match.QueueSize{MBTI: mbti.INTP, Size: 0}, sizes[2])
}
