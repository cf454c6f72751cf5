package kafka

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Consumer reads the booking event topic as part of a consumer group. Offsets are
// committed explicitly after a message has been handled.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(cfg Config, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             cfg.Topic,
		GroupID:           cfg.GroupID,
		MinBytes:          1,
		MaxBytes:          1 << 20, // events are small JSON envelopes
		MaxWait:           time.Second,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		Dialer:            &kafka.Dialer{Timeout: 10 * time.Second},
		StartOffset:       startOffset(cfg.StartOffset),
		ErrorLogger:       errorLogger(logger, "kafka-reader"),
	})
	return &Consumer{reader: r}
}

// startOffset only matters while the group has no committed offset.
func startOffset(s string) int64 {
	if strings.EqualFold(strings.TrimSpace(s), "latest") {
		return kafka.LastOffset
	}
	return kafka.FirstOffset
}

func (c *Consumer) FetchMessage(ctx context.Context) (kafka.Message, error) {
	return c.reader.FetchMessage(ctx)
}

func (c *Consumer) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return c.reader.CommitMessages(ctx, msgs...)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
