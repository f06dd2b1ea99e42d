package activity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrMissingID is returned when activity metadata carries no usable "id"
var ErrMissingID = errors.New("activity metadata has no id")

// Derived metadata keys written at save time
const (
	KeyNormalizedPower     = "normalized_power"
	KeyIntensityFactor     = "intensity_factor"
	KeyTrainingStressScore = "training_stress_score"
)

// DefaultStartDate is used when metadata has no start date
const DefaultStartDate = "1970-01-01"

// Metadata is a provider activity record: the raw payload plus an overlay of
// derived analytics. Overlay values take precedence over raw keys of the same
// name, both on read and when serialized.
type Metadata struct {
	raw     map[string]json.RawMessage
	derived map[string]float64
}

// NewMetadata creates empty metadata.
func NewMetadata() *Metadata {
	return &Metadata{
		raw:     map[string]json.RawMessage{},
		derived: map[string]float64{},
	}
}

// ParseMetadata decodes a JSON object into Metadata.
func ParseMetadata(data []byte) (*Metadata, error) {
	m := NewMetadata()
	if err := json.Unmarshal(data, &m.raw); err != nil {
		return nil, fmt.Errorf("decoding activity metadata: %w", err)
	}
	if m.raw == nil {
		return nil, errors.New("activity metadata is not an object")
	}
	return m, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	parsed, err := ParseMetadata(data)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

// MarshalJSON merges the raw payload and the derived overlay.
// Non-finite derived values serialize as null.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	merged := make(map[string]json.RawMessage, len(m.raw)+len(m.derived))
	for k, v := range m.raw {
		merged[k] = v
	}
	for k, v := range m.derived {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			merged[k] = json.RawMessage("null")
			continue
		}
		merged[k] = json.RawMessage(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return json.Marshal(merged)
}

// SetDerived records a derived analytic in the overlay.
func (m *Metadata) SetDerived(key string, value float64) {
	m.derived[key] = value
}

// Derived returns a copy of the overlay.
func (m *Metadata) Derived() map[string]float64 {
	out := make(map[string]float64, len(m.derived))
	for k, v := range m.derived {
		out[k] = v
	}
	return out
}

// Raw returns the raw JSON value for key.
func (m *Metadata) Raw(key string) (json.RawMessage, bool) {
	v, ok := m.raw[key]
	if !ok || isNull(v) {
		return nil, false
	}
	return v, true
}

// Float returns a numeric field. Integers are widened.
func (m *Metadata) Float(key string) (float64, bool) {
	if v, ok := m.derived[key]; ok {
		return v, true
	}
	n, ok := m.number(key)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int returns an integral numeric field. Fractional numbers are rejected.
func (m *Metadata) Int(key string) (int64, bool) {
	n, ok := m.number(key)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return i, true
}

// String returns a string field.
func (m *Metadata) String(key string) (string, bool) {
	v, ok := m.Raw(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

// Object decodes an object field into out.
func (m *Metadata) Object(key string, out any) bool {
	v, ok := m.Raw(key)
	if !ok {
		return false
	}
	return json.Unmarshal(v, out) == nil
}

// ID returns the non-negative integer activity id.
func (m *Metadata) ID() (int64, bool) {
	id, ok := m.Int("id")
	if !ok || id < 0 {
		return 0, false
	}
	return id, true
}

// Name returns the activity name, or "".
func (m *Metadata) Name() string {
	s, _ := m.String("name")
	return s
}

// StartDate returns the start date string, or "".
func (m *Metadata) StartDate() string {
	s, _ := m.String("start_date")
	return s
}

// Year returns the storage partition of the activity.
func (m *Metadata) Year() string {
	return YearOf(m.StartDate())
}

// YearOf returns the first four characters of a start date, or those of
// DefaultStartDate when it is shorter.
func YearOf(startDate string) string {
	if len(startDate) < 4 {
		startDate = DefaultStartDate
	}
	return startDate[:4]
}

// Distance returns the distance in meters, or 0.
func (m *Metadata) Distance() float64 {
	d, _ := m.Float("distance")
	return d
}

// Header projects the listing fields.
func (m *Metadata) Header() (Header, error) {
	id, ok := m.ID()
	if !ok {
		return Header{}, ErrMissingID
	}
	return Header{
		ID:        id,
		Name:      m.Name(),
		StartDate: m.StartDate(),
		Distance:  m.Distance(),
	}, nil
}

func (m *Metadata) number(key string) (json.Number, bool) {
	v, ok := m.Raw(key)
	if !ok {
		return "", false
	}
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var n any
	if err := dec.Decode(&n); err != nil {
		return "", false
	}
	num, ok := n.(json.Number)
	return num, ok
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}
