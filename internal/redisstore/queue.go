// Package redisstore implements the match ports on Redis. A queue partition
// maps to a list (ordered sequence of ticket JSON) plus a set (authoritative
// membership of valid user ids); per-user state is a JSON string with a TTL
// on MATCHED records.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/topblame/ekani-crew-ai-server/internal/match"
	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

const queueKeyPrefix = "match:queue:"

// enqueueScript adds the user to the membership set and appends the ticket to
// the sequence in one atomic step. Returns 0 when the user was already a
// member, in which case nothing is written.
var enqueueScript = redis.NewScript(`
if redis.call("SADD", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("RPUSH", KEYS[2], ARGV[2])
return 1
`)

// Queue is a Redis-backed match.Queue.
type Queue struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewQueue(rdb *redis.Client, logger zerolog.Logger) *Queue {
	return &Queue{
		rdb: rdb,
		log: logger.With().Str("component", "redis-queue").Logger(),
	}
}

func listKey(m mbti.MBTI) string { return fmt.Sprintf("%s%s:list", queueKeyPrefix, m) }
func setKey(m mbti.MBTI) string  { return fmt.Sprintf("%s%s:set", queueKeyPrefix, m) }

func (q *Queue) Enqueue(ctx context.Context, t match.Ticket) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("serialize ticket: %w", err)
	}

	added, err := enqueueScript.Run(ctx, q.rdb,
		[]string{setKey(t.MBTI), listKey(t.MBTI)},
		t.UserID, payload,
	).Int()
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", t.UserID, err)
	}
	if added == 0 {
		return match.ErrAlreadyQueued
	}
	return nil
}

func (q *Queue) DequeueHead(ctx context.Context, m mbti.MBTI) (*match.Ticket, error) {
	// Pop until a valid (still-member) ticket appears. Ghost entries left by
	// cancels are collected here.
	for {
		data, err := q.rdb.LPop(ctx, listKey(m)).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("pop %s: %w", m, err)
		}

		var ticket match.Ticket
		if err := json.Unmarshal([]byte(data), &ticket); err != nil {
			// Undecodable sequence entries are treated as ghosts.
			q.log.Error().Err(err).Stringer("mbti", m).Msg("dropping undecodable queue entry")
			continue
		}

		valid, err := q.rdb.SRem(ctx, setKey(m), ticket.UserID).Result()
		if err != nil {
			return nil, fmt.Errorf("validate %s: %w", ticket.UserID, err)
		}
		if valid == 0 {
			q.log.Debug().Str("user", ticket.UserID).Stringer("mbti", m).Msg("skipped ghost ticket")
			continue
		}
		return &ticket, nil
	}
}

func (q *Queue) Cancel(ctx context.Context, userID string, m mbti.MBTI) (bool, error) {
	// Membership set only; the sequence entry becomes a ghost.
	removed, err := q.rdb.SRem(ctx, setKey(m), userID).Result()
	if err != nil {
		return false, fmt.Errorf("cancel %s: %w", userID, err)
	}
	return removed > 0, nil
}

func (q *Queue) Size(ctx context.Context, m mbti.MBTI) (int, error) {
	size, err := q.rdb.SCard(ctx, setKey(m)).Result()
	if err != nil {
		return 0, fmt.Errorf("size %s: %w", m, err)
	}
	return int(size), nil
}

func (q *Queue) SortedTargetsBySize(ctx context.Context, targets []mbti.MBTI) ([]match.QueueSize, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.IntCmd, len(targets))
	pipe := q.rdb.Pipeline()
	for i, m := range targets {
		cmds[i] = pipe.SCard(ctx, setKey(m))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read queue sizes: %w", err)
	}

	sizes := make([]match.QueueSize, len(targets))
	for i, m := range targets {
		sizes[i] = match.QueueSize{MBTI: m, Size: int(cmds[i].Val())}
	}
	sort.SliceStable(sizes, func(i, j int) bool { return sizes[i].Size > sizes[j].Size })
	return sizes, nil
}

func (q *Queue) Contains(ctx context.Context, userID string, m mbti.MBTI) (bool, error) {
	member, err := q.rdb.SIsMember(ctx, setKey(m), userID).Result()
	if err != nil {
		return false, fmt.Errorf("check membership %s: %w", userID, err)
	}
	return member, nil
}
