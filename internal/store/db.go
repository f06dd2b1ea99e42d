package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"abcy/internal/ledger"
)

// ErrActivityNotFound is returned when an activity doesn't exist
var ErrActivityNotFound = errors.New("activity not found")

// ErrFileNotFound is returned when a relative path names no stored blob
var ErrFileNotFound = errors.New("file not found")

// ErrLedgerNotFound is returned when nothing is stored under a ledger key
var ErrLedgerNotFound = ledger.ErrNotFound

// DBFileName is the database file created inside the data directory
const DBFileName = "abcy.db"

// Store is the activity and ledger blob store backed by SQLite.
// Activity metadata and streams are stored zstd-compressed.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens the database in dataDir, creating both if necessary.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return openDSN(filepath.Join(dataDir, DBFileName))
}

// OpenMemory opens a private in-memory database.
func OpenMemory() (*Store, error) {
	return openDSN(":memory:")
}

func openDSN(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: SQLite has a single writer, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close closes the database and codecs.
func (s *Store) Close() error {
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

func (s *Store) compress(data []byte) []byte {
	return s.enc.EncodeAll(data, make([]byte, 0, len(data)/2))
}

func (s *Store) decompress(data []byte) ([]byte, error) {
	out, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing blob: %w", err)
	}
	return out, nil
}
