package analysis

import (
	"math"
	"time"

	"abcy/internal/activity"
)

const (
	// ScoreWindowDays is the trailing window both composite scores look at
	ScoreWindowDays = 28
	// WeekDays is the trailing window for weekly volume
	WeekDays = 7
	// LongRideMeters is the distance from which a ride counts as long
	LongRideMeters = 80000.0

	// Enduro decays by EnduroDecay per day once the nearest long ride is
	// older than EnduroGraceDays
	EnduroGraceDays = 14
	EnduroDecay     = 0.9

	// Fitness decays by FitnessDecay per rest day beyond FitnessGraceDays
	FitnessGraceDays = 3
	FitnessDecay     = 0.985
)

// windowed is a summary inside the score window with its age in days
type windowed struct {
	summary activity.Summary
	date    time.Time
	age     int
}

// scoreWindow selects summaries no older than ScoreWindowDays relative to now.
// Summaries with an unparseable start date are skipped.
func scoreWindow(summaries []activity.Summary, now time.Time) []windowed {
	today := truncateDay(now)
	var out []windowed
	for _, s := range summaries {
		date, err := ParseStartDate(s.StartDate)
		if err != nil {
			continue
		}
		age := daysBetween(date, today)
		if age > ScoreWindowDays {
			continue
		}
		out = append(out, windowed{summary: s, date: date, age: age})
	}
	return out
}

// EnduroScore calculates the endurance-capacity index:
//
//	avg(long ride distance*duration)/10000 + hours in the last week + TSS/100
//
// decayed by 0.9 per day once the latest long ride is more than 14 days old.
func EnduroScore(summaries []activity.Summary, now time.Time) float64 {
	var longProducts []float64
	var weekHours, tssSum float64
	nearestLong := -1

	for _, w := range scoreWindow(summaries, now) {
		s := w.summary
		if w.age < WeekDays {
			weekHours += float64(s.Duration) / 3600
		}
		if s.TrainingStressScore != nil {
			tssSum += *s.TrainingStressScore
		}
		if s.Distance >= LongRideMeters {
			longProducts = append(longProducts, s.Distance*float64(s.Duration))
			if nearestLong < 0 || w.age < nearestLong {
				nearestLong = w.age
			}
		}
	}

	var avgLong float64
	if len(longProducts) > 0 {
		var total float64
		for _, p := range longProducts {
			total += p
		}
		avgLong = total / float64(len(longProducts))
	}

	score := avgLong/10000 + weekHours + tssSum/100
	if nearestLong > EnduroGraceDays {
		score *= math.Pow(EnduroDecay, float64(nearestLong-EnduroGraceDays))
	}
	return score
}

// FitnessScore calculates the short-term readiness index:
//
//	4*hours in the last week + (TSS/4)/10 + number of long rides
//
// decayed by 0.985 per consecutive rest day beyond three, counted back from now.
func FitnessScore(summaries []activity.Summary, now time.Time) float64 {
	var weekHours, tssSum float64
	var longCount int
	active := make(map[time.Time]struct{})

	for _, w := range scoreWindow(summaries, now) {
		s := w.summary
		if w.age < WeekDays {
			weekHours += float64(s.Duration) / 3600
		}
		if s.TrainingStressScore != nil {
			tssSum += *s.TrainingStressScore
		}
		if s.Distance >= LongRideMeters {
			longCount++
		}
		active[w.date] = struct{}{}
	}

	score := weekHours*4 + (tssSum/4)/10 + float64(longCount)

	rest := RestDays(active, now)
	if rest > FitnessGraceDays {
		score *= math.Pow(FitnessDecay, float64(rest-FitnessGraceDays))
	}
	return score
}

// RestDays counts consecutive days without activity walking back from now.
// The walk stops one day past the score window.
func RestDays(active map[time.Time]struct{}, now time.Time) int {
	today := truncateDay(now)
	rest := 0
	for i := 0; i <= ScoreWindowDays; i++ {
		if _, ok := active[today.AddDate(0, 0, -i)]; ok {
			break
		}
		rest++
	}
	return rest
}
