package main

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

func openDB(dsn string, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	log.Info("database connection established")
	return db, nil
}

// schema holds the three durable tables: committed profiles keyed by user ID,
// and the two append-only ledgers. Likes and reports are facts, never updated
// in place.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id       BIGINT PRIMARY KEY,
		name          TEXT NOT NULL,
		institute     TEXT NOT NULL,
		description   TEXT,
		photo_file_id TEXT,
		username      TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS likes (
		id       BIGSERIAL PRIMARY KEY,
		liker_id BIGINT NOT NULL,
		liked_id BIGINT NOT NULL,
		liked_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS likes_pair_idx ON likes (liker_id, liked_id, liked_at)`,
	`CREATE INDEX IF NOT EXISTS likes_liked_idx ON likes (liked_id)`,
	`CREATE TABLE IF NOT EXISTS reports (
		id          BIGSERIAL PRIMARY KEY,
		reporter_id BIGINT NOT NULL,
		reported_id BIGINT NOT NULL,
		reported_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS reports_reporter_idx ON reports (reporter_id)`,
	`CREATE INDEX IF NOT EXISTS reports_reported_idx ON reports (reported_id)`,
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// withTx wraps a function in a database transaction.
// - Ensures COMMIT on success, ROLLBACK on errors or panics.
// - Keeps store methods tiny and all state changes atomic.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}

	defer func() {
		// If the callback panics, make sure to rollback before re-panicking
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
