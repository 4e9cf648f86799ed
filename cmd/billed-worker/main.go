package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"billed/internal/config"
	"billed/internal/events"
	"billed/internal/ledger"
	applog "billed/internal/log"
	"billed/internal/storage"
	"billed/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting billed-worker")

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ledger export is optional; without a spreadsheet the worker only
	// records notifications.
	var appender worker.BillAppender
	if os.Getenv("GOOGLE_SPREADSHEET_ID") != "" {
		client, err := ledger.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize ledger client", "error", err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Ledger export enabled")
	} else {
		logger.Info("Ledger export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ew := worker.NewEventWorker(repo, repo, appender)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeBillEvents(gctx, ew.HandleBillEvent)
	})
	g.Go(func() error {
		return worker.PruneNotifications(gctx, repo, cfg.NotificationRetention, time.Hour)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
