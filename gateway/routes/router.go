// Package routes exposes the pool's query surface over HTTP. All endpoints
// are pure reads; mutating operations stay in-process.
package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rwapool/native/pool"
	"rwapool/observability"
)

// NewRouter mounts the pool read surface on a fresh chi router.
func NewRouter(engine *pool.Engine, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	pr := &poolRoutes{engine: engine, logger: logger}
	r.Route("/v1/pool", pr.mount)
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// instrument records request metrics for a named route.
func instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		observability.PoolMetrics().Observe(route, rec.status, time.Since(started))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
