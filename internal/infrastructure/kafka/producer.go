package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const headerEventType = "event-type"

type Config struct {
	Brokers     []string
	Topic       string
	GroupID     string
	StartOffset string // earliest or latest
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg Config, logger *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		BatchTimeout:           20 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		ErrorLogger:            errorLogger(logger, "kafka-writer"),
	}

	return &Producer{writer: w}
}

// SendMessage writes one message keyed by booking id so every event of a booking
// lands on the same partition. The event type travels as a header.
func (p *Producer) SendMessage(ctx context.Context, key, value []byte, eventType string) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   value,
		Headers: []kafka.Header{{Key: headerEventType, Value: []byte(eventType)}},
	})
	if err != nil {
		return fmt.Errorf("write %s to %s: %w", eventType, p.writer.Topic, err)
	}
	return nil
}

func (p *Producer) Topic() string {
	return p.writer.Topic
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// EventType reads the header set by SendMessage.
func EventType(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == headerEventType {
			return string(h.Value)
		}
	}
	return ""
}

func errorLogger(logger *slog.Logger, component string) kafka.Logger {
	if logger == nil {
		return nil
	}
	return kafka.LoggerFunc(func(msg string, args ...interface{}) {
		logger.Error(fmt.Sprintf(msg, args...), "component", component)
	})
}
