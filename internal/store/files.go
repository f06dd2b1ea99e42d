package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Blob file names within an activity directory
const (
	MetaFile    = "meta.json.zst"
	StreamsFile = "streams.json.zst"
)

var (
	activityFileRe = regexp.MustCompile(`^([^/]+)/(\d+)/(meta|streams)\.json\.zst$`)
	ledgerFileRe   = regexp.MustCompile(`^([a-z_]+)\.json$`)
)

// ListFiles returns the relative path of every stored blob: one metadata and
// one streams file per activity under <year>/<id>/, and <key>.json per ledger.
func (s *Store) ListFiles(ctx context.Context) ([]string, error) {
	files := []string{}

	rows, err := s.db.QueryContext(ctx, `SELECT year, id FROM activities ORDER BY year, id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var year string
		var id int64
		if err := rows.Scan(&year, &id); err != nil {
			rows.Close()
			return nil, err
		}
		dir := fmt.Sprintf("%s/%d/", year, id)
		files = append(files, dir+MetaFile, dir+StreamsFile)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	keys, err := s.db.QueryContext(ctx, `SELECT key FROM ledgers ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer keys.Close()
	for keys.Next() {
		var key string
		if err := keys.Scan(&key); err != nil {
			return nil, err
		}
		files = append(files, key+".json")
	}
	return files, keys.Err()
}

// ReadFile returns the stored bytes of a path listed by ListFiles. Activity
// blobs are returned compressed, as stored.
func (s *Store) ReadFile(ctx context.Context, path string) ([]byte, error) {
	path = strings.TrimPrefix(path, "/")

	if m := activityFileRe.FindStringSubmatch(path); m != nil {
		id, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil, ErrFileNotFound
		}
		column := "meta"
		if m[3] == "streams" {
			column = "streams"
		}

		var data []byte
		err = s.db.QueryRowContext(ctx,
			`SELECT `+column+` FROM activities WHERE year = ? AND id = ?`, m[1], id,
		).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return data, err
	}

	if m := ledgerFileRe.FindStringSubmatch(path); m != nil {
		data, err := s.ReadLedger(ctx, m[1])
		if errors.Is(err, ErrLedgerNotFound) {
			return nil, ErrFileNotFound
		}
		return data, err
	}

	return nil, ErrFileNotFound
}
