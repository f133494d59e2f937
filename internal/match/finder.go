package match

import (
	"context"

	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

// Finder searches the waiting queues for a compatible partner.
type Finder struct {
	queue Queue
}

func NewFinder(queue Queue) *Finder {
	return &Finder{queue: queue}
}

// FindPartner returns the best waiting candidate for the ticket at the given
// expansion level, or nil when no compatible partition has a valid waiter.
//
// Candidate partitions are visited in descending order of size: draining the
// most congested queue first relieves system-wide waiting pressure, even when
// a smaller queue holds a higher-tier match.
func (f *Finder) FindPartner(ctx context.Context, myTicket Ticket, level int) (*Ticket, error) {
	targets := mbti.Targets(myTicket.MBTI, level)
	if len(targets) == 0 {
		return nil, nil
	}

	sorted, err := f.queue.SortedTargetsBySize(ctx, targets)
	if err != nil {
		return nil, err
	}

	for _, candidate := range sorted {
		if candidate.Size == 0 {
			continue
		}

		partner, err := f.queue.DequeueHead(ctx, candidate.MBTI)
		if err != nil {
			return nil, err
		}
		if partner != nil {
			return partner, nil
		}
		// Size was stale (all remaining entries were ghosts); try the next
		// partition.
	}

	return nil, nil
}
