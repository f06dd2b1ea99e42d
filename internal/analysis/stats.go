package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"abcy/internal/activity"
)

// ErrUnknownPeriod is returned when a period name is not recognised
var ErrUnknownPeriod = errors.New("unknown period")

// Period is a calendar bucket size
type Period int

const (
	PeriodDay Period = iota
	PeriodWeek
	PeriodMonth
	PeriodYear
)

// String returns the period name.
func (p Period) String() string {
	switch p {
	case PeriodDay:
		return "day"
	case PeriodWeek:
		return "week"
	case PeriodMonth:
		return "month"
	default:
		return "year"
	}
}

// ParsePeriod maps "day", "week", "month" or "year" to a Period.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day":
		return PeriodDay, nil
	case "week":
		return PeriodWeek, nil
	case "month":
		return PeriodMonth, nil
	case "year":
		return PeriodYear, nil
	}
	return PeriodYear, fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// PeriodKey formats a date as its bucket key. Keys sort chronologically.
func PeriodKey(date time.Time, p Period) string {
	switch p {
	case PeriodDay:
		return date.Format(dateLayout)
	case PeriodWeek:
		year, week := date.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case PeriodMonth:
		return fmt.Sprintf("%d-%02d", date.Year(), int(date.Month()))
	default:
		return fmt.Sprintf("%d", date.Year())
	}
}

// StatsFilter restricts aggregation. Nil sets mean no restriction.
type StatsFilter struct {
	IDs   map[int64]struct{}
	Types map[string]struct{}
}

// NewStatsFilter builds a filter; empty slices leave that dimension open.
func NewStatsFilter(ids []int64, types []string) StatsFilter {
	var f StatsFilter
	if len(ids) > 0 {
		f.IDs = make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			f.IDs[id] = struct{}{}
		}
	}
	if len(types) > 0 {
		f.Types = make(map[string]struct{}, len(types))
		for _, t := range types {
			f.Types[t] = struct{}{}
		}
	}
	return f
}

// Match reports whether a summary passes the filter. With a type filter set,
// summaries without a type never match.
func (f StatsFilter) Match(s activity.Summary) bool {
	if f.IDs != nil {
		if _, ok := f.IDs[s.ID]; !ok {
			return false
		}
	}
	if f.Types != nil {
		if s.ActivityType == nil {
			return false
		}
		if _, ok := f.Types[*s.ActivityType]; !ok {
			return false
		}
	}
	return true
}

// StatsEntry aggregates the activities of one period
type StatsEntry struct {
	Period          string   `json:"period"`
	Rides           int      `json:"rides"`
	Distance        float64  `json:"distance"`
	WeightedPower   *float64 `json:"weighted_power"`
	IntensityFactor *float64 `json:"intensity_factor"`
	TrainingStress  *float64 `json:"training_stress"`
	AverageSpeed    *float64 `json:"average_speed"`
}

type meanAcc struct {
	sum   float64
	count int
}

func (m *meanAcc) add(v *float64) {
	if v != nil {
		m.sum += *v
		m.count++
	}
}

func (m meanAcc) mean() *float64 {
	if m.count == 0 {
		return nil
	}
	return floatPtr(m.sum / float64(m.count))
}

type bucket struct {
	rides    int
	distance float64
	power    meanAcc
	ifactor  meanAcc
	tss      float64
	speed    meanAcc
}

// AggregateStats buckets summaries by calendar period, one entry per key in
// ascending order. Summaries with an unparseable start date are skipped.
func AggregateStats(summaries []activity.Summary, period Period, filter StatsFilter) []StatsEntry {
	buckets := make(map[string]*bucket)

	for _, s := range summaries {
		if !filter.Match(s) {
			continue
		}
		date, err := ParseStartDate(s.StartDate)
		if err != nil {
			continue
		}

		key := PeriodKey(date, period)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}

		b.rides++
		b.distance += s.Distance
		b.power.add(s.WeightedAveragePower)
		b.ifactor.add(s.IntensityFactor)
		if s.TrainingStressScore != nil {
			b.tss += *s.TrainingStressScore
		}
		b.speed.add(s.AverageSpeed)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]StatsEntry, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		entries = append(entries, StatsEntry{
			Period:          k,
			Rides:           b.rides,
			Distance:        b.distance,
			WeightedPower:   b.power.mean(),
			IntensityFactor: b.ifactor.mean(),
			TrainingStress:  floatPtr(b.tss),
			AverageSpeed:    b.speed.mean(),
		})
	}
	return entries
}
