package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cashforce/propostas-sync/internal/config"
	"github.com/cashforce/propostas-sync/internal/httpx"
	"github.com/cashforce/propostas-sync/internal/middleware"
	"github.com/cashforce/propostas-sync/internal/report"
	"github.com/cashforce/propostas-sync/internal/syncer"
)

// SyncRunner is what the sync endpoint drives; *syncer.Syncer in production,
// a fake in tests.
type SyncRunner interface {
	Run(ctx context.Context) (syncer.Result, error)
}

// Reporter answers the monthly summary queries.
type Reporter interface {
	MonthlySummary(ctx context.Context, q report.Query) (report.Summary, error)
}

type Server struct {
	Config   config.Config
	Syncer   SyncRunner
	Reporter Reporter
	Logger   *slog.Logger
}

func NewServer(cfg config.Config, sync SyncRunner, reporter Reporter, logger *slog.Logger) *Server {
	return &Server{Config: cfg, Syncer: sync, Reporter: reporter, Logger: logger}
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetSync runs the full pipeline. The response is one of exactly two shapes:
// 200 {"status":"success","rows_processed":N} or 500 {"status":"error",
// "message":...}. No error escapes in any other form.
func (s *Server) GetSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.Syncer.Run(r.Context())
	if err != nil {
		s.Logger.Error("sync_request_failed",
			"error", err,
			"request_id", middleware.RequestIDFromContext(r.Context()),
		)
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.SyncSuccess{
		Status:        "success",
		RowsProcessed: res.RowsProcessed,
	})
}

// GetResumoAlert aggregates one competência month from the materialized
// summary and flags the gross-volume alert. The threshold defaults from
// configuration and can be overridden per request; unparsable overrides fall
// back to the default rather than erroring.
func (s *Server) GetResumoAlert(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	threshold := s.Config.AlertThresholdBruto
	if raw := params.Get("threshold"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			threshold = parsed
		}
	}

	summary, err := s.Reporter.MonthlySummary(r.Context(), report.Query{
		CompetenciaID: params.Get("competencia_id"),
		Grupo:         params.Get("grupo"),
		Parceiro:      params.Get("parceiro"),
		Threshold:     threshold,
	})
	if err != nil {
		if errors.Is(err, report.ErrInvalidCompetencia) {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.Logger.Error("resumo_alert_failed",
			"error", err,
			"request_id", middleware.RequestIDFromContext(r.Context()),
		)
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summary)
}
