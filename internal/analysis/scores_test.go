package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"abcy/internal/activity"
)

var scoreNow = time.Date(2024, 5, 30, 15, 45, 0, 0, time.UTC)

func ride(id int64, daysAgo int, distance float64, duration int64, tss float64) activity.Summary {
	date := scoreNow.AddDate(0, 0, -daysAgo).Format("2006-01-02") + "T00:00:00Z"
	return activity.Summary{
		ID:                  id,
		StartDate:           date,
		Distance:            distance,
		Duration:            duration,
		TrainingStressScore: &tss,
	}
}

func TestEnduroScore(t *testing.T) {
	tests := []struct {
		name      string
		summaries []activity.Summary
		expected  float64
	}{
		{
			name: "two recent long rides and a short one",
			summaries: []activity.Summary{
				ride(1, 1, 100000, 14400, 200),
				ride(2, 10, 100000, 10800, 180),
				ride(3, 3, 50000, 7200, 100),
			},
			// week hours: 4 + 2, tss: 480
			expected: (100000.0*14400+100000.0*10800)/2/10000 + 6.0 + 4.8,
		},
		{
			name: "stale long ride decays",
			summaries: []activity.Summary{
				ride(1, 20, 100000, 14400, 200),
				ride(2, 1, 50000, 7200, 100),
			},
			expected: (144000.0 + 2.0 + 3.0) * math.Pow(0.9, 6),
		},
		{
			name: "long ride at the grace limit does not decay",
			summaries: []activity.Summary{
				ride(1, 14, 80000, 3600, 0),
			},
			expected: 80000.0 * 3600 / 10000,
		},
		{
			name: "activities outside the window are ignored",
			summaries: []activity.Summary{
				ride(1, 29, 200000, 30000, 500),
				ride(2, 2, 20000, 3600, 40),
			},
			expected: 1.0 + 0.4,
		},
		{
			name:      "no activities",
			summaries: nil,
			expected:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, EnduroScore(tt.summaries, scoreNow), 1e-6)
		})
	}
}

func TestFitnessScore(t *testing.T) {
	tests := []struct {
		name      string
		summaries []activity.Summary
		expected  float64
	}{
		{
			name: "active week",
			summaries: []activity.Summary{
				ride(1, 1, 100000, 14400, 200),
				ride(2, 10, 100000, 10800, 180),
				ride(3, 3, 50000, 7200, 100),
			},
			expected: 6.0*4 + (480.0/4)/10 + 2,
		},
		{
			name: "seven rest days decay",
			summaries: []activity.Summary{
				ride(1, 20, 100000, 14400, 200),
				ride(2, 15, 30000, 3600, 50),
				ride(3, 7, 30000, 3600, 50),
			},
			expected: ((300.0/4)/10 + 1) * math.Pow(0.985, 4),
		},
		{
			name: "three rest days do not decay",
			summaries: []activity.Summary{
				ride(1, 3, 30000, 3600, 40),
			},
			expected: 1.0*4 + (40.0/4)/10,
		},
		{
			name:      "no activities",
			summaries: nil,
			expected:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, FitnessScore(tt.summaries, scoreNow), 1e-6)
		})
	}
}

func TestScoresSkipUnparseableDates(t *testing.T) {
	summaries := []activity.Summary{
		{ID: 1, StartDate: "yesterday", Distance: 100000, Duration: 3600},
		ride(2, 0, 10000, 3600, 0),
	}
	assert.InDelta(t, 1.0, EnduroScore(summaries, scoreNow), 1e-9)
	assert.InDelta(t, 4.0, FitnessScore(summaries, scoreNow), 1e-9)
}

func TestRestDays(t *testing.T) {
	day := func(daysAgo int) time.Time {
		return truncateDay(scoreNow).AddDate(0, 0, -daysAgo)
	}

	assert.Equal(t, 0, RestDays(map[time.Time]struct{}{day(0): {}}, scoreNow))
	assert.Equal(t, 5, RestDays(map[time.Time]struct{}{day(5): {}, day(9): {}}, scoreNow))
	assert.Equal(t, ScoreWindowDays+1, RestDays(nil, scoreNow))
}

func TestParseStartDate(t *testing.T) {
	got, err := ParseStartDate("2024-01-01T23:30:00-02:00")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseStartDate("2024-02-29")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseStartDate("")
	assert.Error(t, err)
}
