package tui

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

const metersPerKm = 1000.0

// FormatDistance formats meters as kilometers with thousands separators
func FormatDistance(meters float64) string {
	return humanize.CommafWithDigits(meters/metersPerKm, 1) + " km"
}

// FormatDuration formats seconds as hours and minutes
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatOptional formats v with format, or "-" when v is nil
func FormatOptional(format string, v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

// FormatDate shortens an RFC3339 start date to its calendar day
func FormatDate(startDate string) string {
	if len(startDate) >= 10 {
		return startDate[:10]
	}
	if startDate == "" {
		return "-"
	}
	return startDate
}

// FormatSyncTime renders an RFC3339 sync timestamp relative to now
func FormatSyncTime(ts string) string {
	if ts == "" {
		return "never"
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

func truncateName(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func downsample(data []float64, targetLen int) []float64 {
	if len(data) <= targetLen {
		return data
	}

	result := make([]float64, targetLen)
	ratio := float64(len(data)) / float64(targetLen)

	for i := 0; i < targetLen; i++ {
		start := int(float64(i) * ratio)
		end := min(int(float64(i+1)*ratio), len(data))

		sum := 0.0
		for j := start; j < end; j++ {
			sum += data[j]
		}
		if end > start {
			result[i] = sum / float64(end-start)
		}
	}

	return result
}
