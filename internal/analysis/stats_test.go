package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abcy/internal/activity"
)

func strPtr(s string) *string { return &s }

func statsFixture() []activity.Summary {
	return []activity.Summary{
		{ID: 1, StartDate: "2024-01-01T08:00:00Z", Distance: 10, ActivityType: strPtr("Ride"),
			WeightedAveragePower: floatPtr(200), IntensityFactor: floatPtr(0.8), TrainingStressScore: floatPtr(50), AverageSpeed: floatPtr(30)},
		{ID: 2, StartDate: "2024-01-02T08:00:00Z", Distance: 5, ActivityType: strPtr("Run"),
			AverageSpeed: floatPtr(10)},
		{ID: 3, StartDate: "2024-01-02T18:00:00Z", Distance: 20, ActivityType: strPtr("Ride"),
			WeightedAveragePower: floatPtr(100), TrainingStressScore: floatPtr(25)},
		{ID: 4, StartDate: "2023-12-31T08:00:00Z", Distance: 40},
	}
}

func TestPeriodKey(t *testing.T) {
	date := time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2021-01-03", PeriodKey(date, PeriodDay))
	assert.Equal(t, "2020-W53", PeriodKey(date, PeriodWeek), "ISO week year")
	assert.Equal(t, "2021-01", PeriodKey(date, PeriodMonth))
	assert.Equal(t, "2021", PeriodKey(date, PeriodYear))
	assert.Equal(t, "2024-W02", PeriodKey(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), PeriodWeek))
}

func TestParsePeriod(t *testing.T) {
	for _, p := range []Period{PeriodDay, PeriodWeek, PeriodMonth, PeriodYear} {
		got, err := ParsePeriod(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParsePeriod("fortnight")
	assert.ErrorIs(t, err, ErrUnknownPeriod)
}

func TestAggregateStatsByDay(t *testing.T) {
	entries := AggregateStats(statsFixture(), PeriodDay, StatsFilter{})
	require.Len(t, entries, 3)

	assert.Equal(t, "2023-12-31", entries[0].Period)
	assert.Equal(t, "2024-01-01", entries[1].Period)
	assert.Equal(t, "2024-01-02", entries[2].Period)

	total := 0
	for _, e := range entries {
		total += e.Rides
	}
	assert.Equal(t, 4, total)

	empty := entries[0]
	assert.Nil(t, empty.WeightedPower)
	assert.Nil(t, empty.IntensityFactor)
	assert.Nil(t, empty.AverageSpeed)
	require.NotNil(t, empty.TrainingStress, "tss is a running total")
	assert.Equal(t, 0.0, *empty.TrainingStress)

	second := entries[2]
	assert.Equal(t, 2, second.Rides)
	assert.Equal(t, 25.0, second.Distance)
	require.NotNil(t, second.WeightedPower)
	assert.Equal(t, 100.0, *second.WeightedPower)
	assert.Nil(t, second.IntensityFactor)
	assert.Equal(t, 25.0, *second.TrainingStress)
	require.NotNil(t, second.AverageSpeed)
	assert.Equal(t, 10.0, *second.AverageSpeed)
}

func TestAggregateStatsByYear(t *testing.T) {
	entries := AggregateStats(statsFixture(), PeriodYear, StatsFilter{})
	require.Len(t, entries, 2)
	assert.Equal(t, "2023", entries[0].Period)
	assert.Equal(t, "2024", entries[1].Period)
	assert.Equal(t, 3, entries[1].Rides)
	assert.InDelta(t, 150.0, *entries[1].WeightedPower, 1e-9)
	assert.InDelta(t, 75.0, *entries[1].TrainingStress, 1e-9)
	assert.InDelta(t, 20.0, *entries[1].AverageSpeed, 1e-9)
}

func TestAggregateStatsFilters(t *testing.T) {
	byID := AggregateStats(statsFixture(), PeriodDay, NewStatsFilter([]int64{1}, nil))
	require.Len(t, byID, 1)
	assert.Equal(t, 1, byID[0].Rides)

	byType := AggregateStats(statsFixture(), PeriodDay, NewStatsFilter(nil, []string{"Ride"}))
	require.Len(t, byType, 2)
	assert.Equal(t, "2024-01-01", byType[0].Period)
	assert.Equal(t, 1, byType[1].Rides)

	// untyped activities never pass a type filter
	untyped := AggregateStats(statsFixture(), PeriodYear, NewStatsFilter([]int64{4}, []string{"Ride"}))
	assert.Empty(t, untyped)

	none := AggregateStats(nil, PeriodWeek, StatsFilter{})
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
