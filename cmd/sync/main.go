// Command sync runs the spreadsheet-to-Supabase pipeline once and exits.
// Useful for backfills and for re-running a sync by hand after an upstream
// data fix, without going through the HTTP endpoint.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/cashforce/propostas-sync/internal/config"
	"github.com/cashforce/propostas-sync/internal/pipeline"
	"github.com/cashforce/propostas-sync/internal/sheets"
	"github.com/cashforce/propostas-sync/internal/supabase"
	"github.com/cashforce/propostas-sync/internal/syncer"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := pipeline.ValidateMapping(); err != nil {
		logger.Error("validate column mapping", "error", err)
		os.Exit(1)
	}

	source, err := sheets.New(nil, []byte(cfg.GoogleCredentialsJSON), cfg.GoogleSheetName, cfg.SheetHeaderRow)
	if err != nil {
		logger.Error("build sheets client", "error", err)
		os.Exit(1)
	}
	store, err := supabase.New(nil, cfg.SupabaseURL, cfg.SupabaseKey)
	if err != nil {
		logger.Error("build supabase client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	res, err := syncer.New(source, store, logger, cfg.SyncBatchSize).Run(ctx)
	if err != nil {
		logger.Error("sync failed", "error", err)
		os.Exit(1)
	}
	logger.Info("sync completed", "rows_processed", res.RowsProcessed)
}
