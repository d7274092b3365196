package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cashforce/propostas-sync/internal/app"
	"github.com/cashforce/propostas-sync/internal/config"
	"github.com/cashforce/propostas-sync/internal/report"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	sync := syncer.New(source, store, logger, cfg.SyncBatchSize)
	reporter := report.New(store)

	router, err := app.NewRouter(cfg, sync, reporter, logger)
	if err != nil {
		logger.Error("build router", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	go func() {
		logger.Info("api_started", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
