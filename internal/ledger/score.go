package ledger

import (
	"context"
	"fmt"
	"time"
)

// ScoreFunc computes a composite score as of now
type ScoreFunc func(ctx context.Context, now time.Time) (float64, error)

// ScoreLedger is an unseeded ledger whose new values come from a ScoreFunc.
// Its current value is 0 until the first update.
type ScoreLedger struct {
	*Ledger
	compute ScoreFunc
}

// NewScoreLedger creates a score ledger stored under key.
func NewScoreLedger(store Store, key string, compute ScoreFunc, opts ...Option) *ScoreLedger {
	return &ScoreLedger{
		Ledger:  New(store, key, "score", opts...),
		compute: compute,
	}
}

// Update computes a fresh score, appends it and returns it.
func (s *ScoreLedger) Update(ctx context.Context) (float64, error) {
	score, err := s.compute(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("computing %s score: %w", s.key, err)
	}
	if _, err := s.Append(ctx, score); err != nil {
		return 0, err
	}
	return score, nil
}
