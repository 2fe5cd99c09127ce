package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pnl_dashboard/config"
	"pnl_dashboard/goals"
	"pnl_dashboard/internal/sheets"
	"pnl_dashboard/logger"
	"pnl_dashboard/metrics"
	"pnl_dashboard/queue"
	"pnl_dashboard/rollups"
)

// Tables is the table access the API needs: reads, row edits and cache
// invalidation. sheets.Cached satisfies it.
type Tables interface {
	sheets.Writer
	Invalidate(ctx context.Context, ref config.TableRef) error
}

// Deps collects everything the handlers call into. Queue and Health may be
// nil.
type Deps struct {
	Rollups *rollups.Service
	Goals   *goals.Service
	Tables  Tables
	Refs    config.Tables
	Metrics *metrics.Metrics
	Queue   *queue.Queue
	Health  func(context.Context) error
	Backend string
}

type Handler struct {
	deps Deps
	log  *logger.Entry
}

func NewHandler(deps Deps) *Handler {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Handler{deps: deps, log: logger.GetLogger().WithComponent("http")}
}

// NewRouter registers the /api and /ops routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Use(h.loggingMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.dashboard)
		r.Get("/sales", h.sales)
		r.Get("/calllogs", h.callLogs)
		r.Get("/commissions", h.commissions)
		r.Get("/goals", h.goals)
		r.Get("/settings", h.getSettings)
		r.Post("/settings", h.postSettings)
	})
	r.Route("/ops", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/status", h.status)
		r.Post("/cache/invalidate", h.invalidate)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	return r
}
