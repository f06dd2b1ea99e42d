package analysis

import (
	"math"
	"sort"

	"abcy/internal/activity"
)

// Trend labels, ordered from lowest to highest
const (
	TrendVeryLow  = "very_low"
	TrendLow      = "low"
	TrendNormal   = "normal"
	TrendHigh     = "high"
	TrendVeryHigh = "very_high"
)

// TrendConfig sets the window size and the symmetric relative-change bands.
// A change below SameBand is normal; at or beyond VeryBand it is very high/low.
type TrendConfig struct {
	Window   int     `json:"window"`
	SameBand float64 `json:"same_band"`
	VeryBand float64 `json:"very_band"`
}

// DefaultTrendConfig compares the latest 10 activities with the 10 before.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		Window:   10,
		SameBand: 0.02,
		VeryBand: 0.08,
	}
}

// TrendSummary holds one label per metric
type TrendSummary struct {
	AvgSpeed  string `json:"avg_speed"`
	MaxSpeed  string `json:"max_speed"`
	TSS       string `json:"tss"`
	Intensity string `json:"intensity"`
	Power     string `json:"power"`
}

// ClassifyTrends compares the newest cfg.Window summaries with the preceding
// cfg.Window, ordering by start date. A metric with no values in either window
// or a zero prior mean is normal.
func ClassifyTrends(summaries []activity.Summary, cfg TrendConfig) TrendSummary {
	if cfg.Window <= 0 {
		cfg.Window = DefaultTrendConfig().Window
	}

	ordered := make([]activity.Summary, len(summaries))
	copy(ordered, summaries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartDate > ordered[j].StartDate
	})

	recent := ordered[:min(cfg.Window, len(ordered))]
	prior := ordered[len(recent):min(2*cfg.Window, len(ordered))]

	classify := func(metric func(activity.Summary) *float64) string {
		return cfg.Classify(windowMean(recent, metric), windowMean(prior, metric))
	}

	return TrendSummary{
		AvgSpeed:  classify(func(s activity.Summary) *float64 { return s.AverageSpeed }),
		MaxSpeed:  classify(func(s activity.Summary) *float64 { return s.MaxSpeed }),
		TSS:       classify(func(s activity.Summary) *float64 { return s.TrainingStressScore }),
		Intensity: classify(func(s activity.Summary) *float64 { return s.IntensityFactor }),
		Power:     classify(func(s activity.Summary) *float64 { return s.WeightedAveragePower }),
	}
}

// Classify labels the relative change from prior to recent.
func (cfg TrendConfig) Classify(recent, prior *float64) string {
	if recent == nil || prior == nil || *prior == 0 {
		return TrendNormal
	}

	change := (*recent - *prior) / *prior
	switch {
	case math.IsNaN(change):
		return TrendNormal
	case change >= cfg.VeryBand:
		return TrendVeryHigh
	case change >= cfg.SameBand:
		return TrendHigh
	case change <= -cfg.VeryBand:
		return TrendVeryLow
	case change <= -cfg.SameBand:
		return TrendLow
	default:
		return TrendNormal
	}
}

func windowMean(window []activity.Summary, metric func(activity.Summary) *float64) *float64 {
	var acc meanAcc
	for _, s := range window {
		acc.add(metric(s))
	}
	return acc.mean()
}
