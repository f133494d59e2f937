package kafka

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

// QueueTracker follows users through their waiting window so the consumer
// can report wait times. A user's clock starts on queue_joined and stops on
// match_made or queue_left.
type QueueTracker struct {
	mu      sync.RWMutex
	waiting map[string]queueEntry // by user id
	perMBTI map[mbti.MBTI]int
	stats   WaitStats
}

type queueEntry struct {
	mbti     mbti.MBTI
	joinedAt time.Time
}

// WaitStats aggregates observed wait times.
type WaitStats struct {
	Completed   int64         `json:"completed"`
	TotalWait   time.Duration `json:"total_wait"`
	LongestWait time.Duration `json:"longest_wait"`
}

func NewQueueTracker() *QueueTracker {
	return &QueueTracker{
		waiting: make(map[string]queueEntry),
		perMBTI: make(map[mbti.MBTI]int),
	}
}

// RecordJoin starts the wait clock for a user.
func (t *QueueTracker) RecordJoin(userID string, m mbti.MBTI, joinedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.waiting[userID]; ok {
		t.perMBTI[existing.mbti]--
	}
	t.waiting[userID] = queueEntry{mbti: m, joinedAt: joinedAt}
	t.perMBTI[m]++
}

// RecordLeave stops the clock without counting a completed wait.
func (t *QueueTracker) RecordLeave(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drop(userID)
}

// RecordMatched stops the clock and returns the observed wait, or zero when
// the user was never seen joining (matched on their own request).
func (t *QueueTracker) RecordMatched(userID string, matchedAt time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.waiting[userID]
	if !ok {
		return 0
	}
	t.drop(userID)

	wait := matchedAt.Sub(entry.joinedAt)
	if wait < 0 {
		wait = 0
	}
	t.stats.Completed++
	t.stats.TotalWait += wait
	if wait > t.stats.LongestWait {
		t.stats.LongestWait = wait
	}
	return wait
}

func (t *QueueTracker) drop(userID string) {
	if entry, ok := t.waiting[userID]; ok {
		t.perMBTI[entry.mbti]--
		delete(t.waiting, userID)
	}
}

// WaitingCount reports users currently believed to be waiting in m.
func (t *QueueTracker) WaitingCount(m mbti.MBTI) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.perMBTI[m]
}

// TotalWaiting reports all users currently believed to be waiting.
func (t *QueueTracker) TotalWaiting() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.waiting)
}

// Stats returns a snapshot of the wait statistics.
func (t *QueueTracker) Stats() WaitStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// AverageWait returns the mean completed wait time.
func (t *QueueTracker) AverageWait() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.stats.Completed == 0 {
		return 0
	}
	return t.stats.TotalWait / time.Duration(t.stats.Completed)
}

// PairTracker counts completed matches per unordered MBTI pair.
type PairTracker struct {
	mu    sync.RWMutex
	pairs map[string]int64
}

func NewPairTracker() *PairTracker {
	return &PairTracker{pairs: make(map[string]int64)}
}

// PairKey normalizes an unordered MBTI pair to a stable key, e.g.
// (INTP, INFP) and (INFP, INTP) both map to "INFP:INTP".
func PairKey(a, b mbti.MBTI) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%s", a, b)
}

// RecordMatch counts one completed match for the pair.
func (t *PairTracker) RecordMatch(a, b mbti.MBTI) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pairs[PairKey(a, b)]++
}

// Count returns the number of matches recorded for the pair.
func (t *PairTracker) Count(a, b mbti.MBTI) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pairs[PairKey(a, b)]
}

// PairCount holds one leaderboard row.
type PairCount struct {
	Pair  string `json:"pair"`
	Count int64  `json:"count"`
}

// Top returns the n most frequent pairs, descending.
func (t *PairTracker) Top(n int) []PairCount {
	t.mu.RLock()
	counts := make([]PairCount, 0, len(t.pairs))
	for pair, count := range t.pairs {
		counts = append(counts, PairCount{Pair: pair, Count: count})
	}
	t.mu.RUnlock()

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Pair < counts[j].Pair
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// HourlyTracker counts matches bucketed by hour and by day.
type HourlyTracker struct {
	mu     sync.RWMutex
	hourly map[string]int64 // "2006-01-02T15"
	daily  map[string]int64 // "2006-01-02"
}

func NewHourlyTracker() *HourlyTracker {
	return &HourlyTracker{
		hourly: make(map[string]int64),
		daily:  make(map[string]int64),
	}
}

// RecordMatch counts one match at the given time.
func (t *HourlyTracker) RecordMatch(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hourly[at.UTC().Format("2006-01-02T15")]++
	t.daily[at.UTC().Format("2006-01-02")]++
}

// MatchesThisHour reports matches in the current hour bucket.
func (t *HourlyTracker) MatchesThisHour() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hourly[time.Now().UTC().Format("2006-01-02T15")]
}

// MatchesToday reports matches in the current day bucket.
func (t *HourlyTracker) MatchesToday() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.daily[time.Now().UTC().Format("2006-01-02")]
}

// MatchesOn reports matches for an arbitrary day.
func (t *HourlyTracker) MatchesOn(day time.Time) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.daily[day.UTC().Format("2006-01-02")]
}
