package main

import (
	"context"
	"database/sql"
	"time"
)

// Ledger records like and report events in Postgres. Both tables are
// append-only; every policy (daily limit, mutuality, exclusion) is a
// query-time read over the full history.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) AddLike(ctx context.Context, liker, liked int64) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO likes (liker_id, liked_id) VALUES ($1, $2)`, liker, liked)
	return err
}

// LikedWithin reports whether liker already liked liked inside the trailing
// window. Callers decide how to present a denial.
func (l *Ledger) LikedWithin(ctx context.Context, liker, liked int64, window time.Duration) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM likes
			WHERE liker_id = $1 AND liked_id = $2 AND liked_at > $3
		)
	`, liker, liked, time.Now().Add(-window)).Scan(&exists)
	return exists, err
}

// HasLike reports whether any historical like from liker to liked exists,
// regardless of age. Mutuality checks use this, not the windowed variant.
func (l *Ledger) HasLike(ctx context.Context, liker, liked int64) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM likes WHERE liker_id = $1 AND liked_id = $2)
	`, liker, liked).Scan(&exists)
	return exists, err
}

// LikesReceived counts like events where user is the liked party.
func (l *Ledger) LikesReceived(ctx context.Context, user int64) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE liked_id = $1`, user).Scan(&count)
	return count, err
}

func (l *Ledger) AddReport(ctx context.Context, reporter, reported int64) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO reports (reporter_id, reported_id) VALUES ($1, $2)`, reporter, reported)
	return err
}

// ReportedWith returns every user the given user has reported or been
// reported by. Reports are one-directional facts; exclusion is symmetric.
func (l *Ledger) ReportedWith(ctx context.Context, user int64) (map[int64]struct{}, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT reported_id FROM reports WHERE reporter_id = $1
		UNION
		SELECT reporter_id FROM reports WHERE reported_id = $1
	`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	excluded := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		excluded[id] = struct{}{}
	}
	return excluded, rows.Err()
}
