package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/application/factories/infrastructure"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/config"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/postgres"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/worker"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize structured JSON logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	infraFactory := infrastructure.NewFactory(cfg, logger)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := worker.ServeMetrics(ctx, ":"+cfg.HTTP.MetricsPort, logger); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	poller := worker.NewOutboxPoller(
		postgres.NewOutboxRepository(pgPool),
		infraFactory.KafkaProducer(),
		worker.PollerConfig{
			Interval:    cfg.Outbox.PollInterval,
			BatchSize:   cfg.Outbox.BatchSize,
			MaxAttempts: cfg.Outbox.MaxAttempts,
			StaleAfter:  cfg.Outbox.StaleAfter,
		},
		logger,
	)

	logger.Info("outbox poller starting", "topic", cfg.Kafka.Topic, "interval", cfg.Outbox.PollInterval)
	if err := poller.Run(ctx); err != nil {
		logger.Error("worker stopped with error", "error", err)
	}

	logger.Info("worker exited")
}
