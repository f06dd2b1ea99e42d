// Package fitfile converts FIT activity recordings into the raw metadata and
// stream payloads the service stores for provider activities.
package fitfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tormoder/fit"
)

// ErrNoRecords is returned for a FIT file without timestamped records
var ErrNoRecords = errors.New("fit file has no records")

// Activity is a decoded FIT file in provider payload shape
type Activity struct {
	ID      int64
	Meta    json.RawMessage
	Streams json.RawMessage
}

// meta mirrors the provider metadata fields the summaries read
type meta struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	StartDate          string   `json:"start_date"`
	Distance           float64  `json:"distance"`
	ElapsedTime        int64    `json:"elapsed_time"`
	TotalElevationGain *float64 `json:"total_elevation_gain,omitempty"`
	AverageWatts       *float64 `json:"average_watts,omitempty"`
	MaxSpeed           *float64 `json:"max_speed,omitempty"`
	Source             string   `json:"source"`
}

type stream struct {
	Data []int64 `json:"data"`
}

// Decode reads a FIT activity. The activity id is the file creation time in
// unix seconds, or the start time when the creation time is unset.
func Decode(r io.Reader) (*Activity, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}
	act, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}

	records := make([]*fit.RecordMsg, 0, len(act.Records))
	for _, rec := range act.Records {
		if rec != nil && validTime(rec.Timestamp) {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	var session *fit.SessionMsg
	if len(act.Sessions) > 0 {
		session = act.Sessions[0]
	}

	start := records[0].Timestamp
	if session != nil && validTime(session.StartTime) {
		start = session.StartTime
	}

	id := start.Unix()
	if validTime(decoded.FileId.TimeCreated) {
		id = decoded.FileId.TimeCreated.Unix()
	}

	times := make([]int64, len(records))
	power := make([]int64, len(records))
	hr := make([]int64, len(records))
	var hasPower, hasHR bool
	var lastDistance float64
	for i, rec := range records {
		times[i] = int64(rec.Timestamp.Sub(start) / time.Second)
		if rec.Power != math.MaxUint16 {
			power[i] = int64(rec.Power)
			hasPower = true
		}
		if rec.HeartRate != math.MaxUint8 {
			hr[i] = int64(rec.HeartRate)
			hasHR = true
		}
		if d := rec.GetDistanceScaled(); finitePositive(d) {
			lastDistance = d
		}
	}

	m := meta{
		ID:          id,
		Type:        "Workout",
		StartDate:   start.UTC().Format(time.RFC3339),
		Distance:    lastDistance,
		ElapsedTime: times[len(times)-1],
		Source:      "fit",
	}
	if session != nil {
		m.Type = sportType(session.Sport)
		if d := session.GetTotalDistanceScaled(); finitePositive(d) {
			m.Distance = d
		}
		if e := session.GetTotalElapsedTimeScaled(); finitePositive(e) {
			m.ElapsedTime = int64(math.Round(e))
		}
		if session.TotalAscent != math.MaxUint16 {
			m.TotalElevationGain = floatPtr(float64(session.TotalAscent))
		}
		if session.AvgPower != math.MaxUint16 {
			m.AverageWatts = floatPtr(float64(session.AvgPower))
		}
		if s := session.GetMaxSpeedScaled(); finitePositive(s) {
			m.MaxSpeed = floatPtr(s)
		}
	}
	m.Name = fmt.Sprintf("%s %s", m.Type, start.UTC().Format("2006-01-02 15:04"))

	streams := map[string]stream{"time": {Data: times}}
	if hasPower {
		streams["watts"] = stream{Data: power}
	}
	if hasHR {
		streams["heartrate"] = stream{Data: hr}
	}

	metaJSON, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	streamsJSON, err := json.Marshal(streams)
	if err != nil {
		return nil, err
	}
	return &Activity{ID: id, Meta: metaJSON, Streams: streamsJSON}, nil
}

// sportType maps FIT sports onto provider activity types
func sportType(s fit.Sport) string {
	switch s {
	case fit.SportCycling:
		return "Ride"
	case fit.SportRunning:
		return "Run"
	case fit.SportSwimming:
		return "Swim"
	case fit.SportWalking:
		return "Walk"
	case fit.SportHiking:
		return "Hike"
	case fit.SportInvalid:
		return "Workout"
	}
	name := s.String()
	if name == "" || strings.HasPrefix(name, "SportInvalid") {
		return "Workout"
	}
	return name
}

func validTime(t time.Time) bool {
	return !t.IsZero() && !fit.IsBaseTime(t)
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func floatPtr(v float64) *float64 {
	return &v
}
