package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentRecurring})
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Snapshot requests are optional; the sweep itself never depends on the
	// broker.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, snapshot requests disabled", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "queue", cfg.AMQPQueue)
		}
	}

	processor := services.NewRecurringProcessor(repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	runSweep(ctx, logger, processor, repo, amqpClient)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Recurring worker stopped")
			return
		case <-ticker.C:
			runSweep(ctx, logger, processor, repo, amqpClient)
		}
	}
}

func runSweep(ctx context.Context, logger *applog.Logger, processor *services.RecurringProcessor, repo *storage.Repository, amqpClient *amqp.Client) {
	now := time.Now()
	count, err := processor.ProcessDue(ctx, now)
	if err != nil {
		logger.Error("Recurring sweep failed", "error", err)
		return
	}
	if count == 0 || amqpClient == nil {
		return
	}

	// New transactions change the month's aggregates; ask for fresh
	// snapshots.
	month := core.MonthKeyOf(now)
	accounts, err := repo.AccountIDs(ctx)
	if err != nil {
		logger.Error("Failed to list accounts for snapshot requests", "error", err)
		return
	}
	for _, account := range accounts {
		if err := amqpClient.PublishSnapshotRequest(ctx, account, string(month)); err != nil {
			logger.Error("Failed to publish snapshot request",
				"account_id", account,
				"error", err)
		}
	}
}
