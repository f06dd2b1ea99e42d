package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the per-request id on responses
const RequestIDHeader = "X-Request-ID"

// NewRouter creates and configures the HTTP router
func NewRouter(h *Handler, log zerolog.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	r.HandleFunc("/activities", h.ListActivities).Methods(http.MethodGet)
	r.HandleFunc("/activity/{id:[0-9]+}", h.GetActivity).Methods(http.MethodGet)
	r.HandleFunc("/activity/{id:[0-9]+}/summary", h.GetSummary).Methods(http.MethodGet)
	r.HandleFunc("/files", h.ListFiles).Methods(http.MethodGet)
	r.HandleFunc("/raw/{path:.+}", h.GetRaw).Methods(http.MethodGet)

	for _, key := range []string{"ftp", "weight", "wkg", "enduro", "fitness"} {
		r.HandleFunc("/"+key, h.GetLedger(key)).Methods(http.MethodGet)
		r.HandleFunc("/"+key+"/history", h.GetLedgerHistory(key)).Methods(http.MethodGet)
	}
	r.HandleFunc("/ftp", h.SetLedger("ftp")).Methods(http.MethodPost)
	r.HandleFunc("/weight", h.SetLedger("weight")).Methods(http.MethodPost)
	r.HandleFunc("/enduro/update", h.UpdateScore("enduro")).Methods(http.MethodPost)
	r.HandleFunc("/fitness/update", h.UpdateScore("fitness")).Methods(http.MethodPost)

	r.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	r.HandleFunc("/trend", h.GetTrend).Methods(http.MethodGet)
	r.HandleFunc("/webhook", h.Webhook).Methods(http.MethodPost)

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware tags each request with an id and logs it
func loggingMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			reqLog := log.With().Str("request_id", reqID).Logger()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r.WithContext(reqLog.WithContext(r.Context())))

			reqLog.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("error", err).
						Str("path", r.URL.Path).
						Msg("Panic recovered")
					respondError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
