// Package ledger keeps append-only dated value histories such as FTP,
// body weight and composite scores.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned by a Store when nothing is stored under a key
var ErrNotFound = errors.New("ledger not found")

// Store persists one JSON array per ledger key
type Store interface {
	ReadLedger(ctx context.Context, key string) ([]byte, error)
	WriteLedger(ctx context.Context, key string, data []byte) error
}

// Entry is one dated value
type Entry struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// SeedFunc supplies the first value of an empty ledger
type SeedFunc func(ctx context.Context) (float64, error)

// Ledger is an append-only history persisted under a single key.
// Appends through one Ledger are serialized; writers in other processes
// sharing the store are last-write-wins.
type Ledger struct {
	key   string
	field string
	store Store
	seed  SeedFunc
	now   func() time.Time
	log   zerolog.Logger

	mu sync.Mutex
}

// Option configures a Ledger
type Option func(*Ledger)

// WithSeed sets the value written when the history is first read empty.
func WithSeed(seed SeedFunc) Option {
	return func(l *Ledger) { l.seed = seed }
}

// WithClock overrides the clock used to date entries.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// New creates a ledger stored under key whose entries carry their value in
// the JSON field named field.
func New(store Store, key, field string, opts ...Option) *Ledger {
	l := &Ledger{
		key:   key,
		field: field,
		store: store,
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the storage key.
func (l *Ledger) Key() string {
	return l.key
}

// Today returns the date stamp for new entries.
func (l *Ledger) Today() string {
	return l.now().UTC().Format("2006-01-02")
}

// History returns all entries, oldest first. An empty ledger with a seed is
// seeded with one entry dated today and persisted.
func (l *Ledger) History(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.history(ctx)
}

// Current returns the most recently appended value, or 0 for an empty
// unseeded ledger.
func (l *Ledger) Current(ctx context.Context) (float64, error) {
	hist, err := l.History(ctx)
	if err != nil {
		return 0, err
	}
	if len(hist) == 0 {
		return 0, nil
	}
	return hist[len(hist)-1].Value, nil
}

// Recent returns entries newest first, truncated to n when n > 0.
func (l *Ledger) Recent(ctx context.Context, n int) ([]Entry, error) {
	hist, err := l.History(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(hist))
	for i, e := range hist {
		out[len(hist)-1-i] = e
	}
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Append adds a value dated today.
func (l *Ledger) Append(ctx context.Context, value float64) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hist, err := l.history(ctx)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Date: l.Today(), Value: value}
	hist = append(hist, entry)
	if err := l.save(ctx, hist); err != nil {
		return Entry{}, err
	}

	l.log.Debug().Str("ledger", l.key).Float64("value", value).Msg("ledger entry appended")
	return entry, nil
}

func (l *Ledger) history(ctx context.Context) ([]Entry, error) {
	hist, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(hist) > 0 || l.seed == nil {
		return hist, nil
	}

	value, err := l.seed(ctx)
	if err != nil {
		return nil, fmt.Errorf("seeding %s ledger: %w", l.key, err)
	}
	hist = []Entry{{Date: l.Today(), Value: value}}
	if err := l.save(ctx, hist); err != nil {
		return nil, err
	}

	l.log.Info().Str("ledger", l.key).Float64("value", value).Msg("ledger seeded with default")
	return hist, nil
}

// load reads the persisted history. A missing or unreadable ledger is empty;
// a present but malformed one is an error.
func (l *Ledger) load(ctx context.Context) ([]Entry, error) {
	data, err := l.store.ReadLedger(ctx, l.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			l.log.Warn().Err(err).Str("ledger", l.key).Msg("ledger unreadable, treating as empty")
		}
		return nil, nil
	}
	return decode(data, l.field)
}

func (l *Ledger) save(ctx context.Context, hist []Entry) error {
	data, err := encode(hist, l.field)
	if err != nil {
		return fmt.Errorf("encoding %s ledger: %w", l.key, err)
	}
	if err := l.store.WriteLedger(ctx, l.key, data); err != nil {
		return fmt.Errorf("writing %s ledger: %w", l.key, err)
	}
	return nil
}

// encode writes [{"date": ..., "<field>": ...}, ...].
func encode(hist []Entry, field string) ([]byte, error) {
	rows := make([]map[string]any, len(hist))
	for i, e := range hist {
		rows[i] = map[string]any{"date": e.Date, field: e.Value}
	}
	return json.Marshal(rows)
}

func decode(data []byte, field string) ([]Entry, error) {
	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing %s ledger: %w", field, err)
	}

	hist := make([]Entry, 0, len(rows))
	for i, row := range rows {
		var e Entry
		if err := json.Unmarshal(row["date"], &e.Date); err != nil {
			return nil, fmt.Errorf("parsing %s ledger entry %d date: %w", field, i, err)
		}
		raw, ok := row[field]
		if !ok {
			return nil, fmt.Errorf("parsing %s ledger entry %d: missing %q", field, i, field)
		}
		if err := json.Unmarshal(raw, &e.Value); err != nil {
			return nil, fmt.Errorf("parsing %s ledger entry %d value: %w", field, i, err)
		}
		hist = append(hist, e)
	}
	return hist, nil
}

// Encode renders entries in the ledger's persisted JSON shape.
func (l *Ledger) Encode(entries []Entry) ([]byte, error) {
	return encode(entries, l.field)
}
