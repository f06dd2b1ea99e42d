package fitfile

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"

	"abcy/internal/activity"
)

var fitStart = time.Date(2024, 5, 12, 7, 30, 0, 0, time.UTC)

func buildTestFIT(t *testing.T, withSession bool) []byte {
	t.Helper()

	file, err := fit.NewFile(fit.FileTypeActivity, fit.NewHeader(fit.V20, true))
	require.NoError(t, err)
	file.FileId.TimeCreated = fitStart

	act, err := file.Activity()
	require.NoError(t, err)

	for i, watts := range []uint16{200, 220, invalidPower, 240} {
		rec := fit.NewRecordMsg()
		rec.Timestamp = fitStart.Add(time.Duration(i) * time.Second)
		rec.Power = watts
		rec.HeartRate = uint8(120 + i)
		rec.Distance = uint32(i * 500) // cm
		act.Records = append(act.Records, rec)
	}

	if withSession {
		session := fit.NewSessionMsg()
		session.StartTime = fitStart
		session.Timestamp = fitStart.Add(3 * time.Second)
		session.Sport = fit.SportCycling
		session.TotalElapsedTime = 3000 // ms
		session.TotalDistance = 2000    // cm
		session.TotalAscent = 12
		session.AvgPower = 210
		act.Sessions = append(act.Sessions, session)
	}

	var buf bytes.Buffer
	require.NoError(t, fit.Encode(&buf, file, binary.LittleEndian))
	return buf.Bytes()
}

const invalidPower = 0xFFFF

func TestDecodeWithSession(t *testing.T) {
	a, err := Decode(bytes.NewReader(buildTestFIT(t, true)))
	require.NoError(t, err)
	assert.Equal(t, fitStart.Unix(), a.ID)

	var m map[string]any
	require.NoError(t, json.Unmarshal(a.Meta, &m))
	assert.Equal(t, "Ride", m["type"])
	assert.Equal(t, "2024-05-12T07:30:00Z", m["start_date"])
	assert.InDelta(t, 20.0, m["distance"], 1e-9)
	assert.InDelta(t, 3.0, m["elapsed_time"], 1e-9)
	assert.InDelta(t, 12.0, m["total_elevation_gain"], 1e-9)
	assert.InDelta(t, 210.0, m["average_watts"], 1e-9)
	assert.NotContains(t, m, "max_speed")

	streams, ok := activity.ParseStreams(a.Streams)
	require.True(t, ok)
	assert.Equal(t, []int64{0, 1, 2, 3}, streams.Time)
	assert.Equal(t, []int64{200, 220, 0, 240}, streams.Power)
	assert.Equal(t, []int64{120, 121, 122, 123}, streams.Heartrate)

	meta, err := activity.ParseMetadata(a.Meta)
	require.NoError(t, err)
	header, err := meta.Header()
	require.NoError(t, err)
	assert.Equal(t, a.ID, header.ID)
}

func TestDecodeWithoutSessionUsesRecords(t *testing.T) {
	a, err := Decode(bytes.NewReader(buildTestFIT(t, false)))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(a.Meta, &m))
	assert.Equal(t, "Workout", m["type"])
	assert.InDelta(t, 15.0, m["distance"], 1e-9)
	assert.InDelta(t, 3.0, m["elapsed_time"], 1e-9)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a fit file")))
	assert.Error(t, err)
}
