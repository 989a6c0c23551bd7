package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// Routes returns the http.Handler with all routes and middleware configured.
// The query surface is served under /api/v0 and, as an alias, /state.
func (g *Gateway) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(g.loggingMiddleware)

	api := chi.NewRouter()
	api.Get("/health", g.healthHandler)
	for _, kind := range state.Kinds {
		fn, ok := g.lists[kind]
		if !ok {
			continue
		}
		api.Get("/"+string(kind), g.handleList(kind, fn))
	}
	if g.logs != nil {
		api.Get("/logs", g.listLogsHandler)
		api.Get("/logs/{media_type}", g.retrieveLogsHandler)
	}

	r.Mount("/api/v0", api)
	r.Mount("/state", api)

	if g.cfg.EnableMetrics && g.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
