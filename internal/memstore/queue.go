// Package memstore provides in-process implementations of the match ports.
// A partition emulates the Redis list+set pair with a linked list and a map
// under one lock, which preserves the same ghost-ticket semantics. Used for
// tests and for running the service without a Redis instance.
package memstore

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/topblame/ekani-crew-ai-server/internal/match"
	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

// partition is one MBTI waiting queue: insertion-ordered tickets plus the
// authoritative membership set. Cancelled users are removed from members
// only; their list element becomes a ghost collected on a later dequeue.
type partition struct {
	order   *list.List // of match.Ticket
	members map[string]struct{}
}

// Queue is a thread-safe in-memory match.Queue.
type Queue struct {
	mu         sync.Mutex
	partitions map[mbti.MBTI]*partition
}

func NewQueue() *Queue {
	return &Queue{partitions: make(map[mbti.MBTI]*partition)}
}

func (q *Queue) partitionFor(m mbti.MBTI) *partition {
	p, ok := q.partitions[m]
	if !ok {
		p = &partition{order: list.New(), members: make(map[string]struct{})}
		q.partitions[m] = p
	}
	return p
}

func (q *Queue) Enqueue(_ context.Context, t match.Ticket) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := q.partitionFor(t.MBTI)
	if _, exists := p.members[t.UserID]; exists {
		return match.ErrAlreadyQueued
	}

	p.members[t.UserID] = struct{}{}
	p.order.PushBack(t)
	return nil
}

func (q *Queue) DequeueHead(_ context.Context, m mbti.MBTI) (*match.Ticket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := q.partitionFor(m)
	for {
		front := p.order.Front()
		if front == nil {
			return nil, nil
		}
		p.order.Remove(front)

		ticket := front.Value.(match.Ticket)
		if _, valid := p.members[ticket.UserID]; !valid {
			// Ghost entry left by a cancel; discard and keep popping.
			continue
		}
		delete(p.members, ticket.UserID)
		return &ticket, nil
	}
}

func (q *Queue) Cancel(_ context.Context, userID string, m mbti.MBTI) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := q.partitionFor(m)
	if _, exists := p.members[userID]; !exists {
		return false, nil
	}
	delete(p.members, userID)
	return true, nil
}

func (q *Queue) Size(_ context.Context, m mbti.MBTI) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.partitionFor(m).members), nil
}

func (q *Queue) SortedTargetsBySize(_ context.Context, targets []mbti.MBTI) ([]match.QueueSize, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	sizes := make([]match.QueueSize, 0, len(targets))
	for _, m := range targets {
		sizes = append(sizes, match.QueueSize{MBTI: m, Size: len(q.partitionFor(m).members)})
	}
	sort.SliceStable(sizes, func(i, j int) bool { return sizes[i].Size > sizes[j].Size })
	return sizes, nil
}

func (q *Queue) Contains(_ context.Context, userID string, m mbti.MBTI) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, exists := q.partitionFor(m).members[userID]
	return exists, nil
}
