// Package syncer runs the spreadsheet-to-Supabase pipeline: extract, map,
// normalize, deduplicate, batch-upsert, then best-effort KPI and aggregate
// refreshes.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cashforce/propostas-sync/internal/normalize"
	"github.com/cashforce/propostas-sync/internal/pipeline"
)

// Phase names the pipeline stages, in execution order. Failed is the
// absorbing state for unrecoverable errors up to and including Upserting;
// the refresh phase never fails the run.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseExtracting    Phase = "extracting"
	PhaseMapping       Phase = "mapping"
	PhaseNormalizing   Phase = "normalizing"
	PhaseDeduplicating Phase = "deduplicating"
	PhaseUpserting     Phase = "upserting"
	PhaseRefreshing    Phase = "refreshing_aggregates"
	PhaseDone          Phase = "done"
	PhaseFailed        Phase = "failed"
)

const (
	propostasTable = "propostas"
	kpisTable      = "kpis_atuais"
	refreshProc    = "refresh_propostas_resumo_mensal"

	ritmoWorksheet = "Ritmo"
	ritmoCell      = "B2"
	diasWorksheet  = "Dias para o fim do mês"
	diasCell       = "A2"
)

var (
	// ErrNoRecords means the worksheet returned nothing at all.
	ErrNoRecords = errors.New("no records found in spreadsheet")
	// ErrEmptyAfterConversion means rows existed but none carried data.
	ErrEmptyAfterConversion = errors.New("spreadsheet rows empty after conversion")
	// ErrNoValidRecords means the mandatory-key gate dropped every row.
	ErrNoValidRecords = errors.New("no valid records found (nfid is required)")
)

// RowSource is the spreadsheet collaborator.
type RowSource interface {
	Rows(ctx context.Context) ([]pipeline.RawRow, error)
	NamedCell(ctx context.Context, worksheet, cellRef string) (string, error)
}

// Store is the persistence collaborator.
type Store interface {
	Upsert(ctx context.Context, table, onConflict string, records any) error
	UpsertSingleton(ctx context.Context, table string, record map[string]any) error
	RPC(ctx context.Context, name string) error
}

// Result is the terminal output of a successful run.
type Result struct {
	RowsProcessed int
}

// Syncer owns one run of the pipeline. It holds no cross-run state; runs are
// independent and safe to repeat because the upsert is idempotent per nfid.
type Syncer struct {
	src       RowSource
	store     Store
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

// New wires a Syncer. batchSize bounds each upsert request.
func New(src RowSource, store Store, logger *slog.Logger, batchSize int) *Syncer {
	if batchSize < 1 {
		batchSize = 5000
	}
	return &Syncer{src: src, store: store, logger: logger, batchSize: batchSize, now: time.Now}
}

// Run executes the full pipeline once. Any error from extraction through
// upserting fails the run; the auxiliary refreshes afterwards only log.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	s.logPhase(PhaseExtracting)
	rows, err := s.src.Rows(ctx)
	if err != nil {
		return s.fail(fmt.Errorf("read spreadsheet: %w", err))
	}
	if len(rows) == 0 {
		return s.fail(ErrNoRecords)
	}

	s.logPhase(PhaseMapping)
	mapped := make([]pipeline.Record, 0, len(rows))
	for _, row := range rows {
		if rec := pipeline.MapRow(row); len(rec) > 0 {
			mapped = append(mapped, rec)
		}
	}
	if len(mapped) == 0 {
		return s.fail(ErrEmptyAfterConversion)
	}

	keyed := pipeline.FilterKeyed(mapped)
	if len(keyed) == 0 {
		return s.fail(ErrNoValidRecords)
	}

	s.logPhase(PhaseNormalizing)
	records := make([]pipeline.Record, len(keyed))
	for i, rec := range keyed {
		records[i] = pipeline.Normalize(rec)
	}

	s.logPhase(PhaseDeduplicating)
	records = pipeline.Dedupe(records)

	s.logPhase(PhaseUpserting)
	if err := s.upsertBatches(ctx, records); err != nil {
		return s.fail(err)
	}

	s.logPhase(PhaseRefreshing)
	s.refreshKPISnapshot(ctx)
	s.refreshMonthlySummary(ctx)

	s.logPhase(PhaseDone)
	return Result{RowsProcessed: len(records)}, nil
}

// upsertBatches partitions records into contiguous batches and upserts each
// one. The first failed batch aborts the run: later batches never start, and
// the error names the batch for the operator. Batches already applied stay
// applied; a re-run converges because the upsert is idempotent per nfid.
func (s *Syncer) upsertBatches(ctx context.Context, records []pipeline.Record) error {
	total := len(records)
	s.logger.Info("upsert_started", "rows", total, "batch_size", s.batchSize)
	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}
		batch := records[start:end]
		batchNum := start/s.batchSize + 1
		if err := s.store.Upsert(ctx, propostasTable, pipeline.KeyField, batch); err != nil {
			return fmt.Errorf("upsert batch %d (%d records): %w", batchNum, len(batch), err)
		}
		s.logger.Info("batch_upserted", "batch", batchNum, "rows", len(batch))
	}
	return nil
}

// refreshKPISnapshot overwrites the singleton kpis_atuais row from the two
// auxiliary worksheets. Best effort: failures are logged and swallowed.
func (s *Syncer) refreshKPISnapshot(ctx context.Context) {
	ritmoRaw, err := s.src.NamedCell(ctx, ritmoWorksheet, ritmoCell)
	if err != nil {
		s.logger.Warn("kpi_refresh_failed", "error", err)
		return
	}
	diasRaw, err := s.src.NamedCell(ctx, diasWorksheet, diasCell)
	if err != nil {
		s.logger.Warn("kpi_refresh_failed", "error", err)
		return
	}

	payload := map[string]any{
		"id":         1,
		"updated_at": s.now().UTC().Format(time.RFC3339),
	}
	if ritmo := normalize.Currency(ritmoRaw); ritmo != nil {
		payload["ritmo_projetado"] = *ritmo
	}
	dias := "N/A"
	if d := normalize.Integer(diasRaw); d != nil {
		dias = fmt.Sprintf("%d", *d)
	}
	payload["dias_restantes_mes"] = dias

	if err := s.store.UpsertSingleton(ctx, kpisTable, payload); err != nil {
		s.logger.Warn("kpi_refresh_failed", "error", err)
		return
	}
	s.logger.Info("kpi_refreshed", "dias_restantes_mes", dias)
}

// refreshMonthlySummary kicks the materialized aggregate. Best effort.
func (s *Syncer) refreshMonthlySummary(ctx context.Context) {
	if err := s.store.RPC(ctx, refreshProc); err != nil {
		s.logger.Warn("monthly_summary_refresh_failed", "error", err)
	}
}

func (s *Syncer) fail(err error) (Result, error) {
	s.logger.Error("sync_failed", "phase", PhaseFailed, "error", err)
	return Result{}, err
}

func (s *Syncer) logPhase(p Phase) {
	s.logger.Info("sync_phase", "phase", string(p))
}
