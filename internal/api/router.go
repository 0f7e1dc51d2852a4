package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/arcade/internal/api/handlers"
	"github.com/wonny/arcade/pkg/logger"
)

// Handlers groups the route handlers. Nil groups are not mounted.
type Handlers struct {
	Health   *handlers.HealthHandler
	Rankings *handlers.RankingsHandler
	Models   *handlers.ModelsHandler
	Sessions *handlers.SessionHandler
	Replays  *handlers.ReplayHandler
	Jobs     *handlers.JobsHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	if h.Health != nil {
		r.HandleFunc("/health", h.Health.Health).Methods("GET")
	} else {
		r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	}

	// Full paths on the root router so a method mismatch is a 405, not a 404
	if h.Rankings != nil {
		r.HandleFunc("/api/rankings", h.Rankings.GetRankings).Methods("GET")
	}

	if h.Models != nil {
		r.HandleFunc("/api/models", h.Models.ListModels).Methods("GET")
		r.HandleFunc("/api/models/{id}", h.Models.GetModel).Methods("GET")
	}

	if h.Sessions != nil {
		r.HandleFunc("/api/sessions", h.Sessions.CreateSession).Methods("POST")
		r.HandleFunc("/api/sessions/{id}", h.Sessions.GetSession).Methods("GET")
		r.HandleFunc("/api/sessions/{id}", h.Sessions.DeleteSession).Methods("DELETE")
		r.HandleFunc("/api/sessions/{id}/submit", h.Sessions.Submit).Methods("POST")
		r.HandleFunc("/api/sessions/{id}/events", h.Sessions.Events).Methods("GET")
	}

	if h.Replays != nil {
		r.HandleFunc("/api/replays/current", h.Replays.CurrentReplay).Methods("GET")
		r.HandleFunc("/api/replays/current", h.Replays.CancelReplay).Methods("DELETE")
		r.HandleFunc("/api/replays/{id}", h.Replays.GetReplay).Methods("GET")
		r.HandleFunc("/api/replays/{id}/play", h.Replays.PlayReplay).Methods("POST")
	}

	if h.Jobs != nil {
		r.HandleFunc("/api/jobs", h.Jobs.GetStats).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler is the dependency-free fallback
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","service":"arcade-host"}`))
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the logging middleware
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	log = log.Component("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"Internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
