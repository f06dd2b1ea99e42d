package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"abcy/internal/analysis"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var (
		period string
		ids    []string
		types  []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate activities by day, week, month or year",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			p, err := analysis.ParsePeriod(period)
			if err != nil {
				return err
			}
			idList, err := parseIDs(ids)
			if err != nil {
				return err
			}

			entries, err := a.svc.Stats(cmd.Context(), p, analysis.NewStatsFilter(idList, types))
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStats(entries))
			return nil
		}),
	}

	cmd.Flags().StringVar(&period, "period", "year", "day, week, month or year")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "restrict to activity ids")
	cmd.Flags().StringSliceVar(&types, "types", nil, "restrict to activity types")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newTrendCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trend",
		Short: "Compare recent activities with the ones before",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			t, err := a.svc.Trends(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, row := range [][2]string{
				{"avg_speed", t.AvgSpeed},
				{"max_speed", t.MaxSpeed},
				{"tss", t.TSS},
				{"intensity", t.Intensity},
				{"power", t.Power},
			} {
				fmt.Fprintf(out, "%-10s %s\n", row[0], row[1])
			}
			return nil
		}),
	}
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <id>",
		Short: "Print an activity summary as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid activity id %q", args[0])
			}
			s, err := a.svc.Summary(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s)
		}),
	}
}

func renderStats(entries []analysis.StatsEntry) string {
	if len(entries) == 0 {
		return "no activities"
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Period,
			strconv.Itoa(e.Rides),
			formatKm(e.Distance),
			optional("%.0f W", e.WeightedPower),
			optional("%.2f", e.IntensityFactor),
			optional("%.0f", e.TrainingStress),
			optional("%.1f km/h", e.AverageSpeed),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))).
		Headers("PERIOD", "RIDES", "DISTANCE", "POWER", "IF", "TSS", "SPEED").
		Rows(rows...).
		String()
}

func formatKm(meters float64) string {
	return humanize.CommafWithDigits(meters/1000, 1) + " km"
}

func optional(format string, v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func parseIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid activity id %q", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
