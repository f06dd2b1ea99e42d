package cli

import (
	"fmt"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"abcy/internal/ledger"
)

// newLedgerCmd shows a ledger's current value or history. FTP and weight
// also accept a new value.
func newLedgerCmd(opts *rootOptions, key, short string) *cobra.Command {
	var history int
	settable := key == ledger.KeyFTP || key == ledger.KeyWeight

	use := key
	args := cobra.NoArgs
	if settable {
		use = key + " [value]"
		args = cobra.MaximumNArgs(1)
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				v, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return fmt.Errorf("invalid %s %q", key, args[0])
				}
				if err := a.svc.Set(ctx, key, v); err != nil {
					return err
				}
			}

			if history > 0 {
				entries, err := a.svc.History(ctx, key, history)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%s  %.2f\n", e.Date, e.Value)
				}
				return nil
			}

			v, err := a.svc.Current(ctx, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %.2f\n", key, v)
			return nil
		}),
	}

	cmd.Flags().IntVar(&history, "history", 0, "print the newest N entries instead of the current value")
	return cmd
}

func newScoresCmd(opts *rootOptions) *cobra.Command {
	var (
		update bool
		chart  bool
		points int
	)

	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Show the Enduro and Fitness scores",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if update {
				if _, _, err := a.svc.UpdateScores(ctx); err != nil {
					return err
				}
			}

			for _, key := range []string{ledger.KeyEnduro, ledger.KeyFitness} {
				v, err := a.svc.Current(ctx, key)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-8s %10.2f\n", key, v)
			}

			if !chart {
				return nil
			}
			for _, key := range []string{ledger.KeyEnduro, ledger.KeyFitness} {
				series, err := scoreSeries(cmd, a, key, points)
				if err != nil {
					return err
				}
				if len(series) < 2 {
					fmt.Fprintf(out, "\n%s: not enough history to chart\n", key)
					continue
				}
				fmt.Fprintf(out, "\n%s\n", asciigraph.Plot(series,
					asciigraph.Height(10),
					asciigraph.Caption(key),
				))
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&update, "update", false, "recompute and append today's scores first")
	cmd.Flags().BoolVar(&chart, "chart", false, "plot score history")
	cmd.Flags().IntVar(&points, "points", 60, "history entries to plot")
	return cmd
}

// scoreSeries returns up to n ledger values oldest first
func scoreSeries(cmd *cobra.Command, a *app, key string, n int) ([]float64, error) {
	entries, err := a.svc.History(cmd.Context(), key, n)
	if err != nil {
		return nil, err
	}
	series := make([]float64, len(entries))
	for i, e := range entries {
		series[len(entries)-1-i] = e.Value
	}
	return series, nil
}
