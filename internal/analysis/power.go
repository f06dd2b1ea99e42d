package analysis

import (
	"math"

	"abcy/internal/activity"
)

// NPWindow is the rolling window, in samples, of the normalized power average
const NPWindow = 30

// WeightedAveragePower calculates normalized power: the fourth root of the
// mean of the fourth powers of a rolling NPWindow-sample average.
// Series shorter than the window use their full length as the window.
// An empty series yields 0.
func WeightedAveragePower(power []int64) float64 {
	if len(power) == 0 {
		return 0
	}

	window := min(NPWindow, len(power))

	var sum int64
	for _, p := range power[:window] {
		sum += p
	}
	fourth := pow4(float64(sum) / float64(window))

	for i := window; i < len(power); i++ {
		sum += power[i] - power[i-window]
		fourth += pow4(float64(sum) / float64(window))
	}

	count := len(power) - window + 1
	return math.Pow(fourth/float64(count), 0.25)
}

// IntensityFactor is NP relative to FTP. A zero FTP yields a non-finite value.
func IntensityFactor(np, ftp float64) float64 {
	return np / ftp
}

// TrainingStress calculates TSS, where 100 is one hour at FTP.
// A zero FTP yields a non-finite value.
func TrainingStress(durationSec, np, ftp float64) float64 {
	intensity := IntensityFactor(np, ftp)
	return (durationSec * np * intensity) / (ftp * 3600) * 100
}

// Duration returns elapsed_time, else the last time sample, else 0.
func Duration(meta *activity.Metadata, streams activity.Streams) int64 {
	if d, ok := meta.Int("elapsed_time"); ok {
		return d
	}
	if last, ok := streams.LastTime(); ok {
		return last
	}
	return 0
}

// DeriveAnalytics writes normalized power, intensity factor and training
// stress into the metadata overlay, using the FTP in effect now.
// Nothing is written when the power stream is empty.
func DeriveAnalytics(meta *activity.Metadata, streams activity.Streams, ftp float64) bool {
	if len(streams.Power) == 0 {
		return false
	}

	np := WeightedAveragePower(streams.Power)
	duration := float64(Duration(meta, streams))

	meta.SetDerived(activity.KeyNormalizedPower, np)
	meta.SetDerived(activity.KeyIntensityFactor, IntensityFactor(np, ftp))
	meta.SetDerived(activity.KeyTrainingStressScore, TrainingStress(duration, np, ftp))
	return true
}

func pow4(x float64) float64 {
	sq := x * x
	return sq * sq
}
