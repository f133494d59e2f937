package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Repository provides database operations for match analytics.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CompletedMatch is one persisted pair.
type CompletedMatch struct {
	RoomID      string    `json:"room_id"`
	User1ID     string    `json:"user1_id"`
	User1MBTI   string    `json:"user1_mbti"`
	User2ID     string    `json:"user2_id"`
	User2MBTI   string    `json:"user2_mbti"`
	Level       int       `json:"level"`
	WaitSeconds float64   `json:"wait_seconds"`
	MatchedAt   time.Time `json:"matched_at"`
}

// PairStat is one aggregated row per unordered MBTI pair.
type PairStat struct {
	Pair             string     `json:"pair"`
	TotalMatches     int64      `json:"total_matches"`
	TotalWaitSeconds float64    `json:"total_wait_seconds"`
	LastMatchedAt    *time.Time `json:"last_matched_at,omitempty"`
}

// SaveCompletedMatch stores a completed match; replays of the same room id
// are ignored.
func (r *Repository) SaveCompletedMatch(m CompletedMatch) error {
	query := `
		INSERT INTO completed_matches (
			room_id, user1_id, user1_mbti, user2_id, user2_mbti,
			level, wait_seconds, matched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (room_id) DO NOTHING
	`

	_, err := r.db.Exec(query,
		m.RoomID,
		m.User1ID, m.User1MBTI,
		m.User2ID, m.User2MBTI,
		m.Level, m.WaitSeconds, m.MatchedAt,
	)
	if err != nil {
		return fmt.Errorf("save completed match %s: %w", m.RoomID, err)
	}
	return nil
}

// UpsertPairStat folds one match into the per-pair aggregate.
func (r *Repository) UpsertPairStat(pair string, waitSeconds float64, matchedAt time.Time) error {
	query := `
		INSERT INTO mbti_pair_stats (pair, total_matches, total_wait_seconds, last_matched_at)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (pair) DO UPDATE SET
			total_matches      = mbti_pair_stats.total_matches + 1,
			total_wait_seconds = mbti_pair_stats.total_wait_seconds + EXCLUDED.total_wait_seconds,
			last_matched_at    = GREATEST(mbti_pair_stats.last_matched_at, EXCLUDED.last_matched_at)
	`

	if _, err := r.db.Exec(query, pair, waitSeconds, matchedAt); err != nil {
		return fmt.Errorf("upsert pair stat %s: %w", pair, err)
	}
	return nil
}

// GetPairStats returns the most matched pairs, descending.
func (r *Repository) GetPairStats(limit int) ([]PairStat, error) {
	query := `
		SELECT pair, total_matches, total_wait_seconds, last_matched_at
		FROM mbti_pair_stats
		ORDER BY total_matches DESC, pair ASC
		LIMIT $1
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pair stats: %w", err)
	}
	defer rows.Close()

	var stats []PairStat
	for rows.Next() {
		var s PairStat
		var lastMatched sql.NullTime
		if err := rows.Scan(&s.Pair, &s.TotalMatches, &s.TotalWaitSeconds, &lastMatched); err != nil {
			return nil, fmt.Errorf("scan pair stat: %w", err)
		}
		if lastMatched.Valid {
			t := lastMatched.Time
			s.LastMatchedAt = &t
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// CountMatchesSince returns the number of completed matches since the cutoff.
func (r *Repository) CountMatchesSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM completed_matches WHERE matched_at >= $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return count, nil
}
