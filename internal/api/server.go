package api

import (
	"net/http"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"dispatchd/internal/config"
	"dispatchd/internal/dispatch"
	"dispatchd/internal/hub"
	"dispatchd/internal/logger"
	"dispatchd/internal/store"
)

// Server carries the dependencies of the HTTP surface. Handlers are registered
// onto a mux in cmd/api.
type Server struct {
	Service *dispatch.Service
	Hub     *hub.Hub
	RDB     *redis.Client
	Store   store.Store
	Log     logger.Logger

	optLimiter *rate.Limiter
}

func NewServer(cfg *config.Config, svc *dispatch.Service, h *hub.Hub, rdb *redis.Client, st store.Store, log logger.Logger) *Server {
	return &Server{
		Service:    svc,
		Hub:        h,
		RDB:        rdb,
		Store:      st,
		Log:        log,
		optLimiter: rate.NewLimiter(rate.Limit(cfg.OptimizeRatePerSec), cfg.OptimizeBurst),
	}
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// ReadyHandler reports readiness: both the state cache and the durable store
// must answer.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.RDB.Ping(r.Context()).Err(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "cache unavailable")
		return
	}
	if err := s.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
