package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cashforce/propostas-sync/internal/config"
	"github.com/cashforce/propostas-sync/internal/report"
	"github.com/cashforce/propostas-sync/internal/syncer"
)

type stubRunner struct {
	result syncer.Result
	err    error
}

func (s *stubRunner) Run(ctx context.Context) (syncer.Result, error) {
	return s.result, s.err
}

type stubReporter struct {
	summary report.Summary
	err     error
	lastQ   report.Query
}

func (s *stubReporter) MonthlySummary(ctx context.Context, q report.Query) (report.Summary, error) {
	s.lastQ = q
	if s.err != nil {
		return report.Summary{}, s.err
	}
	return s.summary, nil
}

func newTestRouter(t *testing.T, runner *stubRunner, reporter *stubReporter) http.Handler {
	t.Helper()
	cfg := config.Config{Env: "test", AlertThresholdBruto: 10000000}
	router, err := NewRouter(cfg, runner, reporter, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("expected router, got %v", err)
	}
	return router
}

func get(t *testing.T, router http.Handler, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body, got %q", rr.Body.String())
	}
	return rr.Code, body
}

func TestSyncSuccessShape(t *testing.T) {
	router := newTestRouter(t, &stubRunner{result: syncer.Result{RowsProcessed: 42}}, &stubReporter{})

	status, body := get(t, router, "/api/sync")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["status"] != "success" {
		t.Fatalf("expected status success, got %v", body["status"])
	}
	if body["rows_processed"] != 42.0 {
		t.Fatalf("expected rows_processed 42, got %v", body["rows_processed"])
	}
	if len(body) != 2 {
		t.Fatalf("expected exactly two fields, got %v", body)
	}
}

func TestSyncFailureShape(t *testing.T) {
	router := newTestRouter(t, &stubRunner{err: errors.New("GOOGLE_SHEET_NAME is required")}, &stubReporter{})

	status, body := get(t, router, "/api/sync")
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if body["status"] != "error" {
		t.Fatalf("expected status error, got %v", body["status"])
	}
	if body["message"] != "GOOGLE_SHEET_NAME is required" {
		t.Fatalf("expected failure message, got %v", body["message"])
	}
	if len(body) != 2 {
		t.Fatalf("expected exactly two fields, got %v", body)
	}
}

func TestResumoAlertRequiresCompetencia(t *testing.T) {
	router := newTestRouter(t, &stubRunner{}, &stubReporter{err: report.ErrInvalidCompetencia})

	status, body := get(t, router, "/api/resumo-alert")
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if body["status"] != "error" {
		t.Fatalf("expected status error, got %v", body["status"])
	}
}

func TestResumoAlertThresholdOverride(t *testing.T) {
	reporter := &stubReporter{summary: report.Summary{Status: "success", CompetenciaID: "2024-02"}}
	router := newTestRouter(t, &stubRunner{}, reporter)

	status, _ := get(t, router, "/api/resumo-alert?competencia_id=2024-02&threshold=5000")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if reporter.lastQ.Threshold != 5000 {
		t.Fatalf("expected threshold override 5000, got %v", reporter.lastQ.Threshold)
	}

	// An unparsable override falls back to the configured default.
	_, _ = get(t, router, "/api/resumo-alert?competencia_id=2024-02&threshold=abc")
	if reporter.lastQ.Threshold != 10000000 {
		t.Fatalf("expected default threshold, got %v", reporter.lastQ.Threshold)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &stubRunner{}, &stubReporter{})
	status, body := get(t, router, "/api/health")
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("expected healthy response, got %d %v", status, body)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	router := newTestRouter(t, &stubRunner{result: syncer.Result{RowsProcessed: 1}}, &stubReporter{})

	req := httptest.NewRequest(http.MethodGet, "/api/sync", nil)
	req.Header.Set("X-Request-Id", "cron-run-7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-Id"); got != "cron-run-7" {
		t.Fatalf("expected caller request id echoed, got %q", got)
	}
}
