package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"abcy/internal/activity"
	"abcy/internal/analysis"
	"abcy/internal/service"
	"abcy/internal/store"
)

// webhookTimeout bounds the download triggered by a webhook event
const webhookTimeout = 2 * time.Minute

// Downloader fetches the newest activities from the provider
type Downloader interface {
	DownloadLatest(ctx context.Context, count int, progress chan<- service.SyncProgress) (*service.SyncResult, error)
}

// Handler serves the HTTP API over a Service
type Handler struct {
	svc  *service.Service
	sync Downloader
	log  zerolog.Logger

	// async runs webhook-triggered work; replaced in tests
	async func(func())
}

// NewHandler creates a handler. sync may be nil, in which case webhook
// events are acknowledged but ignored.
func NewHandler(svc *service.Service, sync Downloader, log zerolog.Logger) *Handler {
	return &Handler{
		svc:   svc,
		sync:  sync,
		log:   log,
		async: func(fn func()) { go fn() },
	}
}

// healthResponse is the GET /health body
type healthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Activities int    `json:"activities"`
	LastSync   string `json:"last_sync,omitempty"`
}

// Health handles GET /health with the stored activity count and last sync time
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Service:    "abcy",
		Activities: st.Activities,
		LastSync:   st.LastSync,
	})
}

// ListActivities handles GET /activities?count=N
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	count, err := intParam(r, "count")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	headers, err := h.svc.ListActivities(r.Context(), count)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if headers == nil {
		headers = []activity.Header{}
	}
	respondJSON(w, http.StatusOK, headers)
}

// GetActivity handles GET /activity/{id}
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	detail, err := h.svc.LoadActivity(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// GetSummary handles GET /activity/{id}/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	summary, err := h.svc.Summary(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// ListFiles handles GET /files
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListFiles(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, files)
}

// GetRaw handles GET /raw/{path}, returning the stored bytes unchanged
func (h *Handler) GetRaw(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ReadFile(r.Context(), mux.Vars(r)["path"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetLedger handles GET /{key}, returning the current value
func (h *Handler) GetLedger(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := h.svc.Current(r.Context(), key)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, v)
	}
}

// GetLedgerHistory handles GET /{key}/history?count=N
func (h *Handler) GetLedgerHistory(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := intParam(r, "count")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		l, err := h.svc.Ledger(key)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		entries, err := h.svc.History(r.Context(), key, count)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		body, err := l.Encode(entries)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

// SetLedger handles POST /{key} with a body of {"<key>": value}
func (h *Handler) SetLedger(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]float64
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		v, ok := body[key]
		if !ok {
			respondError(w, http.StatusBadRequest, "missing field "+key)
			return
		}
		if err := h.svc.Set(r.Context(), key, v); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// UpdateScore handles POST /{key}/update, returning the new score
func (h *Handler) UpdateScore(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		score, err := h.svc.UpdateScore(r.Context(), key)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, score)
	}
}

// GetStats handles GET /stats?period=week&ids=1,2&types=Ride
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := analysis.ParsePeriod(q.Get("period"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var ids []int64
	for _, v := range splitList(q.Get("ids")) {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid id "+v)
			return
		}
		ids = append(ids, id)
	}

	entries, err := h.svc.Stats(r.Context(), period, analysis.NewStatsFilter(ids, splitList(q.Get("types"))))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// GetTrend handles GET /trend
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	trend, err := h.svc.Trends(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, trend)
}

// WebhookEvent is the part of a Strava push event the webhook reads
type WebhookEvent struct {
	ObjectType string `json:"object_type"`
	AspectType string `json:"aspect_type"`
	ObjectID   int64  `json:"object_id"`
}

// Webhook handles POST /webhook. A created activity triggers a background
// download of the newest activity.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var event WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if event.ObjectType == "activity" && event.AspectType == "create" && h.sync != nil {
		log := h.log.With().Int64("activity_id", event.ObjectID).Logger()
		log.Info().Msg("webhook: new activity")
		h.async(func() {
			ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
			defer cancel()
			if _, err := h.sync.DownloadLatest(ctx, 1, nil); err != nil {
				log.Error().Err(err).Msg("webhook download failed")
			}
		})
	}
	w.WriteHeader(http.StatusOK)
}

// fail maps service errors to status codes
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrActivityNotFound), errors.Is(err, store.ErrFileNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidValue),
		errors.Is(err, service.ErrUnknownLedger),
		errors.Is(err, service.ErrReadOnlyLedger):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
