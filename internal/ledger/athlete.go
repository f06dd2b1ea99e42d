package ledger

import (
	"context"
	"fmt"
)

// Well-known ledger keys
const (
	KeyFTP     = "ftp"
	KeyWeight  = "weight"
	KeyWkg     = "wkg"
	KeyEnduro  = "enduro"
	KeyFitness = "fitness"
)

// Defaults seeded into empty athlete ledgers
const (
	DefaultFTP    = 240.0 // watts
	DefaultWeight = 75.0  // kg
)

// Athlete groups the FTP, body weight and power-to-weight ledgers.
// Every FTP or weight change also records the resulting W/kg.
type Athlete struct {
	FTP    *Ledger
	Weight *Ledger
	Wkg    *Ledger
}

// NewAthlete creates the athlete ledgers over store.
func NewAthlete(store Store, opts ...Option) *Athlete {
	a := &Athlete{
		FTP:    New(store, KeyFTP, "ftp", opts...),
		Weight: New(store, KeyWeight, "weight", opts...),
		Wkg:    New(store, KeyWkg, "wkg", opts...),
	}
	a.FTP.seed = constant(DefaultFTP)
	a.Weight.seed = constant(DefaultWeight)
	a.Wkg.seed = a.currentWkg
	return a
}

// SetFTP records a new FTP and the W/kg at the current weight.
func (a *Athlete) SetFTP(ctx context.Context, ftp float64) error {
	if _, err := a.FTP.Append(ctx, ftp); err != nil {
		return err
	}
	weight, err := a.Weight.Current(ctx)
	if err != nil {
		return fmt.Errorf("reading weight: %w", err)
	}
	_, err = a.Wkg.Append(ctx, ftp/weight)
	return err
}

// SetWeight records a new body weight and the W/kg at the current FTP.
func (a *Athlete) SetWeight(ctx context.Context, weight float64) error {
	if _, err := a.Weight.Append(ctx, weight); err != nil {
		return err
	}
	ftp, err := a.FTP.Current(ctx)
	if err != nil {
		return fmt.Errorf("reading ftp: %w", err)
	}
	_, err = a.Wkg.Append(ctx, ftp/weight)
	return err
}

func (a *Athlete) currentWkg(ctx context.Context) (float64, error) {
	ftp, err := a.FTP.Current(ctx)
	if err != nil {
		return 0, err
	}
	weight, err := a.Weight.Current(ctx)
	if err != nil {
		return 0, err
	}
	return ftp / weight, nil
}

func constant(v float64) SeedFunc {
	return func(context.Context) (float64, error) { return v, nil }
}
