package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"forfettario/internal/amqp"
	"forfettario/internal/config"
	applog "forfettario/internal/log"
	"forfettario/internal/services"
	"forfettario/internal/sheets"
	gsheet "forfettario/internal/sheets/google"
	mem "forfettario/internal/sheets/memory"
	"forfettario/internal/storage"
	"forfettario/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting forfettario-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The register falls back to memory when no spreadsheet is
	// configured, keeping the worker runnable in development.
	var register sheets.OverdueWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		register = client
		logger.Info("Google Sheets register initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.RegisterSheetName)
	} else {
		register = mem.New()
		logger.Info("Google Sheets disabled, using in-memory register")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	sweeper := services.NewOverdueSweeper(repo, nil)
	exporter := worker.NewExportWorker(repo, register, sweeper, amqpClient, cfg.SweepInterval)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := exporter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
