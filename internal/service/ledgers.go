package service

import (
	"context"
	"fmt"
	"math"

	"abcy/internal/ledger"
)

// Ledger returns the ledger stored under key
func (s *Service) Ledger(key string) (*ledger.Ledger, error) {
	switch key {
	case ledger.KeyFTP:
		return s.athlete.FTP, nil
	case ledger.KeyWeight:
		return s.athlete.Weight, nil
	case ledger.KeyWkg:
		return s.athlete.Wkg, nil
	case ledger.KeyEnduro:
		return s.enduro.Ledger, nil
	case ledger.KeyFitness:
		return s.fitness.Ledger, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLedger, key)
}

// Current returns the latest value of the ledger under key
func (s *Service) Current(ctx context.Context, key string) (float64, error) {
	l, err := s.Ledger(key)
	if err != nil {
		return 0, err
	}
	return l.Current(ctx)
}

// History returns entries of the ledger under key newest first, at most n
// when n > 0
func (s *Service) History(ctx context.Context, key string, n int) ([]ledger.Entry, error) {
	l, err := s.Ledger(key)
	if err != nil {
		return nil, err
	}
	return l.Recent(ctx, n)
}

// Set records a new FTP or weight; both also record the resulting W/kg
func (s *Service) Set(ctx context.Context, key string, value float64) error {
	switch key {
	case ledger.KeyFTP:
		return s.SetFTP(ctx, value)
	case ledger.KeyWeight:
		return s.SetWeight(ctx, value)
	}
	if _, err := s.Ledger(key); err != nil {
		return err
	}
	return fmt.Errorf("%w: %q", ErrReadOnlyLedger, key)
}

// SetFTP records a new FTP in watts
func (s *Service) SetFTP(ctx context.Context, ftp float64) error {
	if err := checkPositive(ftp); err != nil {
		return err
	}
	if err := s.athlete.SetFTP(ctx, ftp); err != nil {
		return fmt.Errorf("setting ftp: %w", err)
	}
	s.log.Info().Str("ledger", ledger.KeyFTP).Float64("value", ftp).Msg("ledger updated")
	return nil
}

// SetWeight records a new body weight in kg
func (s *Service) SetWeight(ctx context.Context, weight float64) error {
	if err := checkPositive(weight); err != nil {
		return err
	}
	if err := s.athlete.SetWeight(ctx, weight); err != nil {
		return fmt.Errorf("setting weight: %w", err)
	}
	s.log.Info().Str("ledger", ledger.KeyWeight).Float64("value", weight).Msg("ledger updated")
	return nil
}

// UpdateScore recomputes the enduro or fitness score and records it
func (s *Service) UpdateScore(ctx context.Context, key string) (float64, error) {
	var sl *ledger.ScoreLedger
	switch key {
	case ledger.KeyEnduro:
		sl = s.enduro
	case ledger.KeyFitness:
		sl = s.fitness
	default:
		return 0, fmt.Errorf("%w: %q is not a score", ErrUnknownLedger, key)
	}
	score, err := sl.Update(ctx)
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("ledger", key).Float64("value", score).Msg("score updated")
	return score, nil
}

// UpdateScores recomputes both composite scores
func (s *Service) UpdateScores(ctx context.Context) (enduro, fitness float64, err error) {
	if enduro, err = s.UpdateScore(ctx, ledger.KeyEnduro); err != nil {
		return 0, 0, err
	}
	if fitness, err = s.UpdateScore(ctx, ledger.KeyFitness); err != nil {
		return 0, 0, err
	}
	return enduro, fitness, nil
}

func checkPositive(v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidValue, v)
	}
	return nil
}
