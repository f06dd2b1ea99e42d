package store

import (
	"context"
	"database/sql"
	"errors"
)

// ReadLedger returns the JSON array stored under key
func (s *Store) ReadLedger(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM ledgers WHERE key = ?
	`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLedgerNotFound
	}
	return data, err
}

// WriteLedger replaces the JSON array stored under key
func (s *Store) WriteLedger(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledgers (key, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, key, data)
	return err
}
