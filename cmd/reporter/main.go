package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/application/factories/infrastructure"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/config"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/consumer"
	domainEvent "github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/event"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/postgres"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/travelerreport"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/usecase"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/worker"
)

const maxRetries = 5

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

	client := travelerreport.NewClient(travelerreport.Config{
		Endpoint:  cfg.TravelerReport.Endpoint,
		Username:  cfg.TravelerReport.Username,
		Password:  cfg.TravelerReport.Password,
		Attempts:  cfg.TravelerReport.Attempts,
		BaseDelay: cfg.TravelerReport.BaseDelay,
		Timeout:   cfg.TravelerReport.Timeout,
	}, logger)

	submitReport := usecase.NewSubmitTravelerReport(
		postgres.NewTxManager(pgPool),
		postgres.NewInboxRepository(pgPool),
		postgres.NewBookingRepository(pgPool),
		postgres.NewPilgrimRepository(pgPool),
		postgres.NewSubmissionRepository(pgPool),
		client,
		cfg.TravelerReport.EstablishmentCode,
		logger,
	)

	processor := consumer.New(infraFactory.KafkaConsumer(), consumer.Config{
		Name:       cfg.Kafka.GroupID,
		MaxRetries: maxRetries,
	}, logger)

	processor.Handle(domainEvent.TypeTravelerReportRequested, func(ctx context.Context, ev domainEvent.Message) error {
		sub, err := submitReport.Execute(ctx, ev)
		if err != nil {
			return err
		}
		if sub != nil {
			logger.Info("traveler report recorded",
				"booking_id", sub.BookingID, "status", sub.Status, "attempts", sub.Attempts, "event_id", ev.ID)
		}
		return nil
	})

	logger.Info("traveler reporter starting", "topic", cfg.Kafka.Topic, "group_id", cfg.Kafka.GroupID)
	if err := processor.Run(ctx); err != nil {
		logger.Error("reporter stopped with error", "error", err)
	}

	logger.Info("reporter exited")
}
