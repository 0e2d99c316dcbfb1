package main

import (
	"context"
	"database/sql"
	"math/rand"
)

// ProfileStore persists committed profiles in Postgres.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Upsert replaces the user's profile: delete then insert inside one
// transaction, so a concurrent Get never observes the gap between the two.
func (s *ProfileStore) Upsert(ctx context.Context, p Profile) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = $1`, p.UserID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (user_id, name, institute, description, photo_file_id, username)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, p.UserID, p.Name, p.Institute,
			nullIfEmpty(p.Description), nullIfEmpty(p.PhotoFileID), nullIfEmpty(p.Username))
		return err
	})
}

// Get returns the user's profile, or nil when none exists.
func (s *ProfileStore) Get(ctx context.Context, userID int64) (*Profile, error) {
	var p Profile
	var desc, photoID, username sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, institute, description, photo_file_id, username
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Name, &p.Institute, &desc, &photoID, &username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Description = desc.String
	p.PhotoFileID = photoID.String
	p.Username = username.String
	return &p, nil
}

// Random picks one profile uniformly among all profiles except the viewer's
// own and the excluded IDs. The selection is an explicit two-step read: load
// the eligible IDs, then sample in process, so uniformity does not depend on
// the database's random-row primitive. Returns nil when nothing is eligible.
func (s *ProfileStore) Random(ctx context.Context, viewer int64, exclude map[int64]struct{}) (*Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM profiles WHERE user_id <> $1`, viewer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var eligible []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if _, gone := exclude[id]; gone {
			continue
		}
		eligible = append(eligible, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	return s.Get(ctx, eligible[rand.Intn(len(eligible))])
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
