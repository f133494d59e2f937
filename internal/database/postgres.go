// Package database persists aggregated match analytics in Postgres.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Open connects to Postgres, verifies the connection and makes sure the
// analytics tables exist.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// Schema holds the DDL for the analytics tables, shared with cmd/setup-db.
const Schema = `
CREATE TABLE IF NOT EXISTS completed_matches (
	room_id       TEXT PRIMARY KEY,
	user1_id      TEXT NOT NULL,
	user1_mbti    CHAR(4) NOT NULL,
	user2_id      TEXT NOT NULL,
	user2_mbti    CHAR(4) NOT NULL,
	level         INT NOT NULL,
	wait_seconds  DOUBLE PRECISION NOT NULL DEFAULT 0,
	matched_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_completed_matches_matched_at
	ON completed_matches (matched_at);

CREATE TABLE IF NOT EXISTS mbti_pair_stats (
	pair                TEXT PRIMARY KEY,
	total_matches       BIGINT NOT NULL DEFAULT 0,
	total_wait_seconds  DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_matched_at     TIMESTAMPTZ
);
`

func createTables(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
