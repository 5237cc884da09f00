package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetbook/internal/amqp"
	"budgetbook/internal/config"
	"budgetbook/internal/export"
	gsheet "budgetbook/internal/export/google"
	mem "budgetbook/internal/export/memory"
	applog "budgetbook/internal/log"
	"budgetbook/internal/storage"
	"budgetbook/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(applog.ComponentWorker, applog.ParseLevel(cfg.LogLevel))
	applog.SetDefault(logger)

	logger.Info("Starting budgetbook-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var writer export.ReportWriter
	switch cfg.ExportBackend {
	case "sheets":
		writer, err = gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	default:
		writer = mem.New()
		logger.Info("Memory exporter initialized", "backend", cfg.ExportBackend)
	}

	reportWorker := worker.NewReportWorker(repo, writer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Export everything once at startup so the report sheet starts complete.
	if err := reportWorker.ExportAll(ctx); err != nil {
		logger.Error("Startup export failed", "error", err)
		// keep running; the consume loop will catch up on changes
	}

	go func() {
		handler := func(msg *amqp.MonthEventMessage) error {
			return reportWorker.HandleMonthEvent(ctx, msg)
		}
		err := amqp.ConsumeWithReconnect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, handler)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
		stop()
	}()

	// Periodic full export for events lost while the worker was down.
	ticker := time.NewTicker(cfg.ExportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker stopped gracefully")
			return
		case <-ticker.C:
			if err := reportWorker.ExportAll(ctx); err != nil {
				logger.Error("Periodic export failed", "error", err)
			}
		}
	}
}
