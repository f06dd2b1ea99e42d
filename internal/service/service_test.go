package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abcy/internal/activity"
	"abcy/internal/analysis"
	"abcy/internal/ledger"
	"abcy/internal/store"
)

var testNow = time.Date(2024, 5, 30, 15, 45, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st := store.NewTestStore(t)
	return New(st, WithClock(func() time.Time { return testNow })), st
}

func metaJSON(id int64, startDate string, distance float64, elapsed int64, extra string) []byte {
	s := fmt.Sprintf(`{"id":%d,"name":"ride %d","start_date":%q,"distance":%v,"elapsed_time":%d`, id, id, startDate, distance, elapsed)
	if extra != "" {
		s += "," + extra
	}
	return []byte(s + "}")
}

func powerStreams(n int, watts int64) []byte {
	times := make([]string, n)
	power := make([]string, n)
	for i := range n {
		times[i] = fmt.Sprint(i)
		power[i] = fmt.Sprint(watts)
	}
	return []byte(fmt.Sprintf(`{"time":{"data":[%s]},"watts":{"data":[%s]}}`,
		strings.Join(times, ","), strings.Join(power, ",")))
}

func TestSaveDerivesPowerAnalytics(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	metaIn := metaJSON(1, "2024-05-29T08:00:00Z", 50000, 3600, `"type":"Ride","device":{"name":"head unit"},"kudos":null`)
	streamsIn := powerStreams(60, 200)

	header, err := svc.Save(ctx, metaIn, streamsIn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), header.ID)

	rec, err := st.LoadActivity(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "2024", rec.Year)

	// Every input key kept, exactly NP, IF and TSS added
	var want map[string]any
	require.NoError(t, json.Unmarshal(metaIn, &want))
	streams, ok := activity.ParseStreams(streamsIn)
	require.True(t, ok)
	np := analysis.WeightedAveragePower(streams.Power)
	want[activity.KeyNormalizedPower] = np
	want[activity.KeyIntensityFactor] = analysis.IntensityFactor(np, ledger.DefaultFTP)
	want[activity.KeyTrainingStressScore] = analysis.TrainingStress(3600, np, ledger.DefaultFTP)
	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)

	assert.JSONEq(t, string(wantJSON), string(rec.Meta))
	assert.InDelta(t, 200.0, np, 1e-9)
	assert.InDelta(t, 200.0/240, want[activity.KeyIntensityFactor], 1e-9)

	detail, err := svc.LoadActivity(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, streams, detail.Streams)
	loadedMeta, err := json.Marshal(detail.Meta)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(loadedMeta))
}

func TestSaveWithoutPowerLeavesMetadataUntouched(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	// Compact with sorted keys, the form metadata is written in
	metaIn := []byte(`{"distance":1000,"elapsed_time":600,"id":2,"name":"ride 2","start_date":"2024-05-29T08:00:00Z"}`)
	streamsIn := []byte(`{"time":[0,1,2],"heartrate":{"data":[120,121]}}`)

	_, err := svc.Save(ctx, metaIn, streamsIn)
	require.NoError(t, err)

	rec, err := st.LoadActivity(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, string(metaIn), string(rec.Meta))

	detail, err := svc.LoadActivity(ctx, 2)
	require.NoError(t, err)
	streams, ok := activity.ParseStreams(streamsIn)
	require.True(t, ok)
	assert.Equal(t, streams, detail.Streams)
	assert.Empty(t, detail.Streams.Power)
	assert.Len(t, detail.Streams.Heartrate, 2, "sequences keep their own lengths")
}

func TestSaveRequiresID(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Save(context.Background(), []byte(`{"name":"no id"}`), nil)
	assert.ErrorIs(t, err, activity.ErrMissingID)
}

func TestSummaryKeepsSaveTimeIntensity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Save(ctx, metaJSON(3, "2024-05-29T08:00:00Z", 50000, 3600, ""), powerStreams(60, 240))
	require.NoError(t, err)
	require.NoError(t, svc.SetFTP(ctx, 300))

	s, err := svc.Summary(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, s.IntensityFactor)
	assert.InDelta(t, 1.0, *s.IntensityFactor, 1e-9, "computed against the FTP at save time")
}

func TestSummaryNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Summary(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrActivityNotFound)
}

func TestListActivitiesNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	for i, date := range []string{"2024-05-01T08:00:00Z", "2024-05-20T08:00:00Z", "2024-05-10T08:00:00Z"} {
		_, err := svc.Save(ctx, metaJSON(int64(i+1), date, 1000, 600, ""), nil)
		require.NoError(t, err)
	}

	headers, err := svc.ListActivities(ctx, 2)
	require.NoError(t, err)
	require.Len(t, headers, 2)
	assert.Equal(t, int64(2), headers[0].ID)
	assert.Equal(t, int64(3), headers[1].ID)

	exists, err := svc.Exists(ctx, "2024-05-01T08:00:00Z", 1)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStatsCountsEveryMatchingActivity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	dates := []string{"2024-05-01T08:00:00Z", "2024-05-02T08:00:00Z", "2024-04-15T08:00:00Z", "2023-12-31T08:00:00Z"}
	for i, date := range dates {
		_, err := svc.Save(ctx, metaJSON(int64(i+1), date, 20000, 3600, `"type":"Ride"`), powerStreams(30, 150))
		require.NoError(t, err)
	}

	entries, err := svc.Stats(ctx, analysis.PeriodMonth, analysis.NewStatsFilter(nil, nil))
	require.NoError(t, err)

	total := 0
	for _, e := range entries {
		total += e.Rides
	}
	assert.Equal(t, len(dates), total)
	assert.Equal(t, "2023-12", entries[0].Period)
}

func TestLedgerAccess(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	ftp, err := svc.Current(ctx, ledger.KeyFTP)
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultFTP, ftp)

	require.NoError(t, svc.SetWeight(ctx, 80))
	wkg, err := svc.Current(ctx, ledger.KeyWkg)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, wkg, 1e-9)

	hist, err := svc.History(ctx, ledger.KeyWeight, 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 80.0, hist[0].Value)
	assert.Equal(t, "2024-05-30", hist[0].Date)

	assert.ErrorIs(t, svc.SetFTP(ctx, 0), ErrInvalidValue)
	assert.ErrorIs(t, svc.SetWeight(ctx, -3), ErrInvalidValue)
	assert.ErrorIs(t, svc.Set(ctx, ledger.KeyWkg, 4), ErrReadOnlyLedger)
	assert.ErrorIs(t, svc.Set(ctx, "vo2max", 4), ErrUnknownLedger)
	_, err = svc.History(ctx, "vo2max", 0)
	assert.ErrorIs(t, err, ErrUnknownLedger)
}

func TestUpdateScores(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	enduro, err := svc.Current(ctx, ledger.KeyEnduro)
	require.NoError(t, err)
	assert.Equal(t, 0.0, enduro, "score ledgers start empty")

	_, err = svc.Save(ctx, metaJSON(1, "2024-05-29T07:00:00Z", 100000, 14400, ""), nil)
	require.NoError(t, err)

	enduro, fitness, err := svc.UpdateScores(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 100000.0*14400/10000+4, enduro, 1e-9)
	assert.InDelta(t, 4*4.0+1, fitness, 1e-9)

	hist, err := svc.History(ctx, ledger.KeyFitness, 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.InDelta(t, fitness, hist[0].Value, 1e-9)

	_, err = svc.UpdateScore(ctx, ledger.KeyFTP)
	assert.ErrorIs(t, err, ErrUnknownLedger)
}

func TestTrendsWithoutHistory(t *testing.T) {
	svc, _ := newTestService(t)
	trend, err := svc.Trends(context.Background())
	require.NoError(t, err)
	assert.Equal(t, analysis.TrendNormal, trend.Power)
}

func TestStatusReportsCountAndLastSync(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{}, status)

	_, err = svc.Save(ctx, metaJSON(1, "2024-05-29T08:00:00Z", 1000, 60, ""), nil)
	require.NoError(t, err)
	require.NoError(t, st.SetSyncState(ctx, store.SyncStateLastSync, "2024-05-30T15:00:00Z"))

	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{Activities: 1, LastSync: "2024-05-30T15:00:00Z"}, status)
}

func TestSummariesFailOnUnreadableActivity(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	_, err := svc.Save(ctx, metaJSON(1, "2024-05-29T08:00:00Z", 1000, 60, ""), nil)
	require.NoError(t, err)
	require.NoError(t, st.SaveActivity(ctx, &store.ActivityRecord{
		ID: 2, Year: "2024", Name: "broken", StartDate: "2024-05-28T08:00:00Z",
		Meta: []byte(`not json`), Streams: []byte(`{}`),
	}))

	_, err = svc.Summaries(ctx)
	assert.ErrorContains(t, err, "loading activity 2")

	_, err = svc.Stats(ctx, analysis.PeriodYear, analysis.StatsFilter{})
	assert.Error(t, err, "stats never silently drop a stored activity")
}
