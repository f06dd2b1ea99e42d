package activity

import (
	"bytes"
	"encoding/json"
)

// Streams holds the canonical per-second samples of an activity.
// Sequences may differ in length; a missing metric is an empty slice.
type Streams struct {
	Time      []int64 `json:"time"`
	Power     []int64 `json:"power"`
	Heartrate []int64 `json:"heartrate"`
}

// EmptyStreams returns streams with all sequences present but empty.
func EmptyStreams() Streams {
	return Streams{
		Time:      []int64{},
		Power:     []int64{},
		Heartrate: []int64{},
	}
}

// LastTime returns the final time sample, if any.
func (s Streams) LastTime() (int64, bool) {
	if len(s.Time) == 0 {
		return 0, false
	}
	return s.Time[len(s.Time)-1], true
}

// powerKeys are checked in order; the first key present wins.
var powerKeys = []string{"watts", "power"}

// ParseStreams normalizes a raw provider stream payload.
//
// Accepted shapes, per metric: {"data": [...]} or a bare array, either keyed
// by stream type in an object or as Strava's list of {"type", "data"} objects.
// Entries that are not integers become 0. ok is false when no usable time
// stream exists.
func ParseStreams(raw []byte) (Streams, bool) {
	keyed, ok := streamsByType(raw)
	if !ok {
		return Streams{}, false
	}

	timeRaw, ok := keyed["time"]
	if !ok {
		return Streams{}, false
	}
	times, ok := samples(timeRaw)
	if !ok {
		return Streams{}, false
	}

	out := EmptyStreams()
	out.Time = times

	for _, key := range powerKeys {
		if v, ok := keyed[key]; ok {
			if power, ok := samples(v); ok {
				out.Power = power
			}
			break
		}
	}

	if v, ok := keyed["heartrate"]; ok {
		if hr, ok := samples(v); ok {
			out.Heartrate = hr
		}
	}

	return out, true
}

// streamsByType indexes a payload by stream type.
func streamsByType(raw []byte) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}

	switch raw[0] {
	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return nil, false
		}
		return keyed, true
	case '[':
		var list []struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, false
		}
		keyed := make(map[string]json.RawMessage, len(list))
		for _, s := range list {
			if s.Type != "" && s.Data != nil {
				keyed[s.Type] = s.Data
			}
		}
		return keyed, true
	}
	return nil, false
}

// samples decodes {"data": [...]} or a bare array into integer samples.
func samples(raw json.RawMessage) ([]int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.Data == nil {
			return nil, false
		}
		raw = bytes.TrimSpace(wrapped.Data)
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var values []any
	if err := dec.Decode(&values); err != nil {
		return nil, false
	}

	out := make([]int64, len(values))
	for i, v := range values {
		if n, ok := v.(json.Number); ok {
			if iv, err := n.Int64(); err == nil {
				out[i] = iv
			}
		}
	}
	return out, true
}
