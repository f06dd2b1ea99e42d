package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"abcy/internal/activity"
)

// SaveActivity inserts or replaces an activity
func (s *Store) SaveActivity(ctx context.Context, rec *ActivityRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, year, name, start_date, distance, meta, streams, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			year = excluded.year,
			name = excluded.name,
			start_date = excluded.start_date,
			distance = excluded.distance,
			meta = excluded.meta,
			streams = excluded.streams,
			updated_at = CURRENT_TIMESTAMP
	`,
		rec.ID, rec.Year, rec.Name, rec.StartDate, rec.Distance,
		s.compress(rec.Meta), s.compress(rec.Streams),
	)
	if err != nil {
		return fmt.Errorf("saving activity %d: %w", rec.ID, err)
	}
	return nil
}

// ActivityExists reports whether an activity is stored under year and id
func (s *Store) ActivityExists(ctx context.Context, year string, id int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activities WHERE year = ? AND id = ?
	`, year, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListActivities returns activity headers, newest start date first.
// A limit <= 0 returns all activities.
func (s *Store) ListActivities(ctx context.Context, limit int) ([]activity.Header, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_date, distance
		FROM activities
		ORDER BY start_date DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	headers := []activity.Header{}
	for rows.Next() {
		var h activity.Header
		if err := rows.Scan(&h.ID, &h.Name, &h.StartDate, &h.Distance); err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// LoadActivity retrieves an activity by ID
func (s *Store) LoadActivity(ctx context.Context, id int64) (*ActivityRecord, error) {
	rec := &ActivityRecord{ID: id}
	var meta, streams []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT year, name, start_date, distance, meta, streams
		FROM activities
		WHERE id = ?
	`, id).Scan(&rec.Year, &rec.Name, &rec.StartDate, &rec.Distance, &meta, &streams)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}

	if rec.Meta, err = s.decompress(meta); err != nil {
		return nil, fmt.Errorf("activity %d metadata: %w", id, err)
	}
	if rec.Streams, err = s.decompress(streams); err != nil {
		return nil, fmt.Errorf("activity %d streams: %w", id, err)
	}
	return rec, nil
}

// CountActivities returns the number of stored activities
func (s *Store) CountActivities(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`).Scan(&n)
	return n, err
}
