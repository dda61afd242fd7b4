package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/couchcryptid/health-risk-dashboard/internal/adapter/csvfile"
	"github.com/couchcryptid/health-risk-dashboard/internal/adapter/fswatch"
	"github.com/couchcryptid/health-risk-dashboard/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/health-risk-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/health-risk-dashboard/internal/adapter/wshub"
	"github.com/couchcryptid/health-risk-dashboard/internal/auth"
	"github.com/couchcryptid/health-risk-dashboard/internal/config"
	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
	"github.com/couchcryptid/health-risk-dashboard/internal/observability"
	"github.com/couchcryptid/health-risk-dashboard/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := csvfile.NewStore(cfg.DataDir, cfg.PredictionsFile, cfg.ForecastsFile)
	notifier := pipeline.NewNotifier(logger, metrics)

	hub := wshub.New(logger, metrics)
	notifier.Register("websocket", hub)

	var background sync.WaitGroup

	// The publisher outlives the signal context so uploads still in flight
	// during Shutdown can enqueue events before the final flush.
	writerCtx, stopWriter := context.WithCancel(context.Background())
	defer stopWriter()

	// Dataset events to Kafka (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		notifier.Register("kafka", writer)
		background.Add(1)
		go func() {
			defer background.Done()
			writer.Run(writerCtx)
		}()
	} else {
		logger.Info("kafka notifications disabled")
	}

	svc := pipeline.New(store, store, notifier, logger, metrics)

	var authenticator *auth.Authenticator
	if cfg.AdminEnabled {
		authenticator = auth.New(auth.Options{
			Username:     cfg.AdminUsername,
			PasswordHash: cfg.AdminPasswordHash,
			Secret:       cfg.AdminTokenSecret,
			TTL:          cfg.AdminTokenTTL,
		})
		logger.Info("admin routes enabled", "username", cfg.AdminUsername)
	} else {
		logger.Info("admin routes disabled: ADMIN_PASSWORD_HASH not set")
	}

	var watcher *fswatch.Watcher
	if cfg.WatchEnabled {
		watcher, err = fswatch.New(map[domain.Kind]string{
			domain.KindPredictions: cfg.PredictionsFile,
			domain.KindForecasts:   cfg.ForecastsFile,
		}, svc, cfg.WatchDebounce, logger)
		if err == nil {
			err = watcher.Start(ctx)
		}
		if err != nil {
			logger.Error("failed to start data watcher", "error", err)
			os.Exit(1)
		}
	}

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:           cfg.HTTPAddr,
		Service:        svc,
		Ready:          store,
		Auth:           authenticator,
		Events:         hub,
		UploadMaxBytes: cfg.UploadMaxBytes,
		Metrics:        metrics,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not drained by Shutdown.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if watcher != nil {
		watcher.Stop()
	}

	stopWriter()
	background.Wait()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
