package analysis

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ParseStartDate parses an RFC 3339 timestamp or a bare ISO date and returns
// its UTC calendar date.
func ParseStartDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return truncateDay(t.UTC()), nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return truncateDay(t), nil
	}
	return time.Time{}, fmt.Errorf("unparseable start date %q", s)
}

// daysBetween returns whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(truncateDay(b).Sub(truncateDay(a)).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
