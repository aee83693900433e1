package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/groblegark/warmpath/internal/backup"
	"github.com/groblegark/warmpath/internal/config"
	"github.com/groblegark/warmpath/internal/events"
	"github.com/groblegark/warmpath/internal/intro"
	"github.com/groblegark/warmpath/internal/logging"
	"github.com/groblegark/warmpath/internal/metrics"
	"github.com/groblegark/warmpath/internal/server"
	"github.com/groblegark/warmpath/internal/store/postgres"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the warmpath server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't build an HTTP client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (WARMPATH_NATS_URL not set)")
		}

		var metricsHandler http.Handler
		if cfg.Metrics {
			metricsHandler = metrics.EnablePrometheus()
			logger.Info("prometheus metrics enabled")
		}

		srv := server.NewServer(store, publisher, logger)

		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: srv.NewHTTPHandler(cfg.AuthToken, metricsHandler),
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Expiry and reminder sweeper.
		var sweeper *intro.Sweeper
		if cfg.SweepInterval > 0 {
			sweeper = intro.NewSweeper(store, srv.Notifier(), cfg.SweepInterval, logger)
			sweeper.Start()
			logger.Info("sweeper started", "interval", cfg.SweepInterval)
		}

		// Periodic JSONL backup.
		var backupScheduler *backup.Scheduler
		if cfg.BackupInterval > 0 && cfg.S3Bucket != "" {
			dest, err := backup.NewS3Destination(
				context.Background(),
				cfg.S3Bucket,
				cfg.S3Key,
				cfg.S3Region,
				cfg.S3Endpoint,
			)
			if err != nil {
				logger.Error("failed to create S3 backup destination", "err", err)
			} else {
				backupScheduler = backup.NewScheduler(store, []backup.Destination{dest}, cfg.BackupInterval, logger)
				backupScheduler.Start()
				logger.Info("backup scheduler started", "bucket", cfg.S3Bucket, "interval", cfg.BackupInterval)
			}
		}

		logger.Info("warmpath server started", "http_addr", cfg.HTTPAddr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if backupScheduler != nil {
			backupScheduler.Stop()
			logger.Info("backup scheduler stopped")
		}
		if sweeper != nil {
			sweeper.Stop()
			logger.Info("sweeper stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
