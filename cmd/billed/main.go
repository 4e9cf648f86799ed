package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"billed/internal/bills"
	"billed/internal/config"
	"billed/internal/events"
	apphttp "billed/internal/http"
	applog "billed/internal/log"
	"billed/internal/objstore"
	"billed/internal/receipts"
	"billed/internal/session"
	"billed/internal/storage"
	"billed/internal/store"
	"billed/internal/store/memory"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		receiptCreator store.ReceiptCreator
		updater        store.BillUpdater
		lister         store.BillLister
		previewer      store.ReceiptPreviewer
		notifications  store.NotificationStore
	)

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()

		objects, err := objstore.New(cfg)
		if err != nil {
			logger.Error("Failed to initialize receipt object storage", "error", err, "endpoint", cfg.S3Endpoint)
			os.Exit(1)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			logger.Error("Failed to ensure receipt bucket", "error", err, "bucket", cfg.ReceiptBucket)
			os.Exit(1)
		}

		svc := receipts.NewService(objects, repo, cfg.PresignExpiry)
		receiptCreator, updater, lister = svc, repo, repo
		previewer, notifications = svc, repo
		logger.Info("Initialized sqlite backend", "backend", cfg.DataBackend, "path", cfg.SQLiteDBPath)
	default:
		st := memory.New()
		receiptCreator, updater, lister = st, st, st
		previewer, notifications = st, st
		logger.Info("Initialized memory backend", "backend", cfg.DataBackend)
	}

	// The event bus is optional: without it submission outcomes stay
	// log-only and no notifications are produced.
	var bus bills.EventPublisher
	if client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err != nil {
		logger.Warn("Event bus unavailable, submission events disabled", "error", err)
	} else {
		defer client.Close()
		bus = client
		logger.Info("Event bus connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	sess := session.NewMemoryStore()
	if err := session.SeedUser(sess, session.User{Email: cfg.SessionUserEmail, Type: cfg.SessionUserType}); err != nil {
		logger.Error("Failed to seed session user", "error", err)
		os.Exit(1)
	}

	mgr := bills.NewManager(receiptCreator, updater, sess, nil, bus)
	rtr := bills.NewRetriever(lister, sess)

	srv := apphttp.NewServer(":"+cfg.Port, mgr, rtr, previewer, notifications, sess, cfg.MaxUploadBytes)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting billed server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
