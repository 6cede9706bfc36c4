package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/cache"
	"tally/internal/config"
	"tally/internal/fx"
	apphttp "tally/internal/http"
	applog "tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting tally server")

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

	// Optional share notifications; the API works without a broker.
	var shareNotifier services.ShareNotifier
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPShareQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, share notifications disabled", "error", err)
		} else {
			defer amqpClient.Close()
			shareNotifier = amqpClient
			logger.Info("AMQP client initialized", "queue", cfg.AMQPShareQueue)
		}
	}

	fxService := fx.NewService(
		fx.NewHTTPProvider(cfg.FXBaseURL, cfg.FXTimeout),
		cfg.FXCacheSize,
		cfg.FXCacheTTL,
	)

	janitor := cache.NewJanitor()
	janitor.Register(fxService.Cache())
	janitor.Start(5 * time.Minute)
	defer janitor.Stop()

	dashboards := services.NewDashboardService(repo, fxService, cfg.TrendMonths)
	sharing := services.NewSharingService(repo, shareNotifier)

	srv := apphttp.NewServer(":"+cfg.Port, dashboards, sharing, cfg.RequestsPerMinute, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	logger.Info("Listening", "port", cfg.Port, "base_currency", cfg.BaseCurrency)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
