package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"abcy/internal/activity"
	"abcy/internal/analysis"
	"abcy/internal/ledger"
	"abcy/internal/store"
)

var (
	// ErrInvalidValue is returned for a non-positive FTP or weight
	ErrInvalidValue = errors.New("value must be positive")
	// ErrUnknownLedger is returned for a ledger key that does not exist
	ErrUnknownLedger = errors.New("unknown ledger")
	// ErrReadOnlyLedger is returned when setting a derived ledger directly
	ErrReadOnlyLedger = errors.New("ledger cannot be set directly")
)

// ActivityStore is the persistence the service needs
type ActivityStore interface {
	ledger.Store
	SaveActivity(ctx context.Context, rec *store.ActivityRecord) error
	ActivityExists(ctx context.Context, year string, id int64) (bool, error)
	ListActivities(ctx context.Context, limit int) ([]activity.Header, error)
	LoadActivity(ctx context.Context, id int64) (*store.ActivityRecord, error)
	ListFiles(ctx context.Context) ([]string, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	CountActivities(ctx context.Context) (int, error)
	GetSyncState(ctx context.Context, key string) (string, error)
}

// Status describes what the store holds
type Status struct {
	Activities int    `json:"activities"`
	LastSync   string `json:"last_sync,omitempty"` // RFC3339, empty before the first sync
}

// Service ties storage, ledgers and analytics together
type Service struct {
	store   ActivityStore
	athlete *ledger.Athlete
	enduro  *ledger.ScoreLedger
	fitness *ledger.ScoreLedger
	trend   analysis.TrendConfig
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the clock used for ledger dates and score windows
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithTrendConfig sets the trend window and bands
func WithTrendConfig(cfg analysis.TrendConfig) Option {
	return func(s *Service) { s.trend = cfg }
}

// New creates a Service over st
func New(st ActivityStore, opts ...Option) *Service {
	s := &Service{
		store: st,
		trend: analysis.DefaultTrendConfig(),
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	ledgerOpts := []ledger.Option{ledger.WithClock(s.now), ledger.WithLogger(s.log)}
	s.athlete = ledger.NewAthlete(st, ledgerOpts...)
	s.enduro = ledger.NewScoreLedger(st, ledger.KeyEnduro, s.scoreFunc(analysis.EnduroScore), ledgerOpts...)
	s.fitness = ledger.NewScoreLedger(st, ledger.KeyFitness, s.scoreFunc(analysis.FitnessScore), ledgerOpts...)
	return s
}

// Save stores an activity from its raw metadata and streams payloads.
// When the streams carry power, NP, IF and TSS against the current FTP are
// written into the stored metadata.
func (s *Service) Save(ctx context.Context, metaJSON, streamsJSON []byte) (activity.Header, error) {
	meta, err := activity.ParseMetadata(metaJSON)
	if err != nil {
		return activity.Header{}, fmt.Errorf("parsing metadata: %w", err)
	}
	header, err := meta.Header()
	if err != nil {
		return activity.Header{}, err
	}

	if streams, ok := activity.ParseStreams(streamsJSON); ok {
		if analysis.DeriveAnalytics(meta, streams, s.currentFTP(ctx)) {
			ev := s.log.Debug().Int64("activity_id", header.ID)
			for k, v := range meta.Derived() {
				ev = ev.Float64(k, v)
			}
			ev.Msg("derived power analytics")
		}
	}

	metaOut, err := meta.MarshalJSON()
	if err != nil {
		return activity.Header{}, fmt.Errorf("encoding metadata: %w", err)
	}
	if len(streamsJSON) == 0 {
		streamsJSON = []byte("{}")
	}

	err = s.store.SaveActivity(ctx, &store.ActivityRecord{
		ID:        header.ID,
		Year:      meta.Year(),
		Name:      header.Name,
		StartDate: header.StartDate,
		Distance:  header.Distance,
		Meta:      metaOut,
		Streams:   streamsJSON,
	})
	if err != nil {
		return activity.Header{}, err
	}

	s.log.Info().Int64("activity_id", header.ID).Str("name", header.Name).Msg("saved activity")
	return header, nil
}

// Exists reports whether an activity is already stored
func (s *Service) Exists(ctx context.Context, startDate string, id int64) (bool, error) {
	return s.store.ActivityExists(ctx, activity.YearOf(startDate), id)
}

// ListActivities returns up to limit headers, newest first; limit <= 0 lists all
func (s *Service) ListActivities(ctx context.Context, limit int) ([]activity.Header, error) {
	headers, err := s.store.ListActivities(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	return headers, nil
}

// LoadActivity returns the stored metadata and normalized streams.
// Streams that cannot be normalized load as empty.
func (s *Service) LoadActivity(ctx context.Context, id int64) (activity.Detail, error) {
	rec, err := s.store.LoadActivity(ctx, id)
	if err != nil {
		return activity.Detail{}, err
	}
	meta, err := activity.ParseMetadata(rec.Meta)
	if err != nil {
		return activity.Detail{}, fmt.Errorf("parsing metadata of %d: %w", id, err)
	}
	streams, ok := activity.ParseStreams(rec.Streams)
	if !ok {
		streams = activity.EmptyStreams()
	}
	return activity.Detail{Meta: meta, Streams: streams}, nil
}

// Summary builds the summary of one activity
func (s *Service) Summary(ctx context.Context, id int64) (activity.Summary, error) {
	detail, err := s.LoadActivity(ctx, id)
	if err != nil {
		return activity.Summary{}, err
	}
	return analysis.BuildSummary(id, detail, s.currentFTP(ctx)), nil
}

// Status reports the stored activity count and the time of the last sync
func (s *Service) Status(ctx context.Context) (Status, error) {
	n, err := s.store.CountActivities(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("counting activities: %w", err)
	}
	last, err := s.store.GetSyncState(ctx, store.SyncStateLastSync)
	if err != nil {
		return Status{}, fmt.Errorf("reading last sync: %w", err)
	}
	return Status{Activities: n, LastSync: last}, nil
}

// Summaries builds the summary of every stored activity, newest first.
// An activity that fails to load fails the whole call.
func (s *Service) Summaries(ctx context.Context) ([]activity.Summary, error) {
	return s.RecentSummaries(ctx, 0)
}

// RecentSummaries builds the summaries of the newest limit activities;
// limit <= 0 covers all of them
func (s *Service) RecentSummaries(ctx context.Context, limit int) ([]activity.Summary, error) {
	headers, err := s.ListActivities(ctx, limit)
	if err != nil {
		return nil, err
	}
	ftp := s.currentFTP(ctx)

	summaries := make([]activity.Summary, 0, len(headers))
	for _, h := range headers {
		detail, err := s.LoadActivity(ctx, h.ID)
		if err != nil {
			return nil, fmt.Errorf("loading activity %d: %w", h.ID, err)
		}
		summaries = append(summaries, analysis.BuildSummary(h.ID, detail, ftp))
	}
	return summaries, nil
}

// Stats aggregates summaries per period after filtering
func (s *Service) Stats(ctx context.Context, period analysis.Period, filter analysis.StatsFilter) ([]analysis.StatsEntry, error) {
	summaries, err := s.Summaries(ctx)
	if err != nil {
		return nil, err
	}
	entries := analysis.AggregateStats(summaries, period, filter)
	s.log.Debug().Str("period", period.String()).Int("buckets", len(entries)).Msg("aggregated stats")
	return entries, nil
}

// Trends classifies recent performance against the prior window
func (s *Service) Trends(ctx context.Context) (analysis.TrendSummary, error) {
	summaries, err := s.Summaries(ctx)
	if err != nil {
		return analysis.TrendSummary{}, err
	}
	return analysis.ClassifyTrends(summaries, s.trend), nil
}

// ListFiles lists the stored blobs by relative path
func (s *Service) ListFiles(ctx context.Context) ([]string, error) {
	return s.store.ListFiles(ctx)
}

// ReadFile returns a stored blob by relative path
func (s *Service) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return s.store.ReadFile(ctx, path)
}

// currentFTP reads the FTP ledger, falling back to the default seed
func (s *Service) currentFTP(ctx context.Context) float64 {
	ftp, err := s.athlete.FTP.Current(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("reading ftp, using default")
		return ledger.DefaultFTP
	}
	return ftp
}

func (s *Service) scoreFunc(score func([]activity.Summary, time.Time) float64) ledger.ScoreFunc {
	return func(ctx context.Context, now time.Time) (float64, error) {
		summaries, err := s.Summaries(ctx)
		if err != nil {
			return 0, err
		}
		return score(summaries, now), nil
	}
}
