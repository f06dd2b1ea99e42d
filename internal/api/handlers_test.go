package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abcy/internal/service"
	"abcy/internal/store"
)

type fakeDownloader struct {
	counts []int
}

func (f *fakeDownloader) DownloadLatest(_ context.Context, count int, _ chan<- service.SyncProgress) (*service.SyncResult, error) {
	f.counts = append(f.counts, count)
	return &service.SyncResult{}, nil
}

type testAPI struct {
	router     http.Handler
	svc        *service.Service
	downloader *fakeDownloader
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	now := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)
	svc := service.New(store.NewTestStore(t), service.WithClock(func() time.Time { return now }))
	dl := &fakeDownloader{}
	h := NewHandler(svc, dl, zerolog.Nop())
	h.async = func(fn func()) { fn() }
	return &testAPI{router: NewRouter(h, zerolog.Nop()), svc: svc, downloader: dl}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) save(t *testing.T, meta, streams string) {
	t.Helper()
	_, err := a.svc.Save(context.Background(), []byte(meta), []byte(streams))
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.JSONEq(t, `{"status":"ok","service":"abcy","activities":0}`, rec.Body.String())

	api.save(t, `{"id":3,"name":"Spin","start_date":"2024-05-28T07:00:00Z","distance":1000,"elapsed_time":60}`, `{}`)
	rec = api.do(t, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok","service":"abcy","activities":1}`, rec.Body.String())
}

func TestActivityEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.save(t, `{"id":7,"name":"Hill repeats","start_date":"2024-05-28T07:00:00Z","distance":30000,"elapsed_time":3600}`,
		`{"time":{"data":[0,1,2]},"watts":{"data":[200,200,200]},"heartrate":{"data":[120,130,140]}}`)

	rec := api.do(t, http.MethodGet, "/activities?count=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":7,"name":"Hill repeats","start_date":"2024-05-28T07:00:00Z","distance":30000}]`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/activity/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Meta    map[string]any `json:"meta"`
		Streams struct {
			Power []int64 `json:"power"`
		} `json:"streams"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Hill repeats", detail.Meta["name"])
	assert.Equal(t, []int64{200, 200, 200}, detail.Streams.Power)

	rec = api.do(t, http.MethodGet, "/activity/7/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.InDelta(t, 130.0, summary["average_heartrate"], 1e-9)
	assert.Contains(t, summary, "max_speed")
	assert.Nil(t, summary["max_speed"])

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/activity/8", "").Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/activity/8/summary", "").Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/activities?count=x", "").Code)
}

func TestFilesAndRaw(t *testing.T) {
	api := newTestAPI(t)
	api.save(t, `{"id":3,"start_date":"2023-02-01T07:00:00Z"}`, `{"time":[0]}`)

	rec := api.do(t, http.MethodGet, "/files", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var files []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Contains(t, files, "2023/3/meta.json.zst")
	assert.Contains(t, files, "2023/3/streams.json.zst")

	rec = api.do(t, http.MethodGet, "/raw/2023/3/streams.json.zst", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/raw/2023/4/meta.json.zst", "").Code)
}

func TestLedgerEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/ftp", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `240`, rec.Body.String())

	assert.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/ftp", `{"ftp":300}`).Code)
	assert.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/weight", `{"weight":75}`).Code)

	rec = api.do(t, http.MethodGet, "/wkg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `4`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/ftp/history?count=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"date":"2024-05-30","ftp":300}]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/ftp", `{"ftp":0}`).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/ftp", `{"watts":250}`).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/weight", `not json`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodPost, "/wkg", `{"wkg":4}`).Code)
}

func TestScoreEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/enduro", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `0`, rec.Body.String())

	api.save(t, `{"id":1,"start_date":"2024-05-29T07:00:00Z","distance":100000,"elapsed_time":14400}`, ``)

	rec = api.do(t, http.MethodPost, "/fitness/update", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `17`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/fitness/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"date":"2024-05-30","score":17}]`, rec.Body.String())
}

func TestStatsAndTrend(t *testing.T) {
	api := newTestAPI(t)
	api.save(t, `{"id":1,"start_date":"2024-05-01T07:00:00Z","distance":10000,"type":"Ride"}`, ``)
	api.save(t, `{"id":2,"start_date":"2024-05-02T07:00:00Z","distance":5000,"type":"Run"}`, ``)

	rec := api.do(t, http.MethodGet, "/stats?period=month&types=Ride", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-05", entries[0]["period"])
	assert.EqualValues(t, 1, entries[0]["rides"])

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/stats?period=fortnight", "").Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/stats?period=day&ids=a", "").Code)

	rec = api.do(t, http.MethodGet, "/trend", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"avg_speed":"normal","max_speed":"normal","tss":"normal","intensity":"normal","power":"normal"}`, rec.Body.String())
}

func TestWebhook(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/webhook", `{"object_type":"activity","aspect_type":"create","object_id":5}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodPost, "/webhook", `{"object_type":"activity","aspect_type":"update","object_id":5}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []int{1}, api.downloader.counts)
}
