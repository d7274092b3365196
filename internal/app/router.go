package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cashforce/propostas-sync/internal/config"
	"github.com/cashforce/propostas-sync/internal/handlers"
	"github.com/cashforce/propostas-sync/internal/middleware"
	"github.com/cashforce/propostas-sync/internal/pipeline"
)

// NewRouter wires the middleware chain and the three GET endpoints. It also
// runs the column-mapping validation, since a misconfigured mapping table
// must fail startup rather than corrupt a sync run.
func NewRouter(cfg config.Config, sync handlers.SyncRunner, reporter handlers.Reporter, logger *slog.Logger) (http.Handler, error) {
	if err := pipeline.ValidateMapping(); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.Env))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.Logging(logger))

	h := handlers.NewServer(cfg, sync, reporter, logger)

	api := chi.NewRouter()
	api.Get("/health", h.GetHealth)
	api.Get("/sync", h.GetSync)
	api.Get("/resumo-alert", h.GetResumoAlert)

	r.Mount("/api", api)
	return r, nil
}
