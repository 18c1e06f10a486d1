// Package handler serves readiness for Kubernetes, load balancers, and CI.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crestline/tenantcore/internal/server/httpx"
)

// Pinger reports whether the backing store is reachable. *pgxpool.Pool
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

const pingTimeout = 2 * time.Second

// Handler answers GET /healthz. With a nil Pinger it always reports ok,
// which keeps the in-memory configuration honest.
type Handler struct {
	db Pinger
}

// NewHandler returns a health handler backed by db.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

type response struct {
	Status string `json:"status"`
}

// Check reports ok when the database answers a ping, degraded otherwise.
// It is served without authentication, so the body carries no detail
// beyond the status word.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("health: database ping failed")
			httpx.WriteJSON(w, http.StatusServiceUnavailable, response{Status: "degraded"})
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, response{Status: "ok"})
}
