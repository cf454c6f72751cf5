package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/config"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/kafka"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/postgres"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/redis"

	"github.com/avast/retry-go/v4"
	pgxpool "github.com/jackc/pgx/v5/pgxpool"
	go_redis "github.com/redis/go-redis/v9"
)

const (
	connectAttempts = 5
	connectDelay    = 2 * time.Second
)

// Factory builds the shared clients of a process once and closes them together.
type Factory struct {
	cfg    *config.Config
	logger *slog.Logger

	pgPool   *pgxpool.Pool
	redisCli *go_redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
}

func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

func (f *Factory) Postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if f.pgPool != nil {
		return f.pgPool, nil
	}

	pool, err := connect(ctx, f.logger, "postgres", func() (*pgxpool.Pool, error) {
		return postgres.NewClient(ctx, postgres.Config{
			Host:     f.cfg.Postgres.Host,
			Port:     f.cfg.Postgres.Port,
			User:     f.cfg.Postgres.User,
			Password: f.cfg.Postgres.Password,
			DBName:   f.cfg.Postgres.DBName,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init postgres after retries: %w", err)
	}

	f.pgPool = pool
	return pool, nil
}

func (f *Factory) Redis(ctx context.Context) (*go_redis.Client, error) {
	if f.redisCli != nil {
		return f.redisCli, nil
	}

	client, err := connect(ctx, f.logger, "redis", func() (*go_redis.Client, error) {
		return redis.NewClient(ctx, redis.Config{
			Addr:     f.cfg.Redis.Addr,
			Password: f.cfg.Redis.Password,
			DB:       f.cfg.Redis.DB,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	f.redisCli = client
	return client, nil
}

func (f *Factory) KafkaProducer() *kafka.Producer {
	if f.producer == nil {
		f.producer = kafka.NewProducer(f.kafkaConfig(), f.logger)
	}
	return f.producer
}

func (f *Factory) KafkaConsumer() *kafka.Consumer {
	if f.consumer == nil {
		f.consumer = kafka.NewConsumer(f.kafkaConfig(), f.logger)
	}
	return f.consumer
}

func (f *Factory) kafkaConfig() kafka.Config {
	return kafka.Config{
		Brokers:     f.cfg.Kafka.Brokers,
		Topic:       f.cfg.Kafka.Topic,
		GroupID:     f.cfg.Kafka.GroupID,
		StartOffset: f.cfg.Kafka.StartOffset,
	}
}

func (f *Factory) Close() {
	if f.consumer != nil {
		if err := f.consumer.Close(); err != nil {
			f.logger.Warn("failed to close kafka consumer", "error", err)
		}
	}
	if f.producer != nil {
		if err := f.producer.Close(); err != nil {
			f.logger.Warn("failed to close kafka producer", "error", err)
		}
	}
	if f.pgPool != nil {
		f.pgPool.Close()
	}
	if f.redisCli != nil {
		if err := f.redisCli.Close(); err != nil {
			f.logger.Warn("failed to close redis", "error", err)
		}
	}
}

// connect retries dial with a fixed delay.
func connect[T any](ctx context.Context, logger *slog.Logger, name string, dial func() (T, error)) (T, error) {
	return retry.DoWithData(dial,
		retry.Context(ctx),
		retry.Attempts(connectAttempts),
		retry.Delay(connectDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("connection failed, retrying",
				"target", name, "attempt", n+1, "max", connectAttempts, "delay", connectDelay, "error", err)
		}),
	)
}
