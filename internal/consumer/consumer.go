// Package consumer runs the fetch, handle, commit loop over the event topic.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	domainEvent "github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/event"
	kafkaInfra "github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/kafka"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

var (
	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_messages_processed_total",
		Help: "Messages handled and committed, by event type and outcome",
	}, []string{"event_type", "outcome"})
	processingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "consumer_processing_duration_seconds",
		Help:    "Time taken to handle one message",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})
)

type Source interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Handler processes one event. Returning an error retries the message; after
// MaxRetries the message is committed and dropped.
type Handler func(ctx context.Context, ev domainEvent.Message) error

type Config struct {
	Name       string
	MaxRetries int
	Backoff    func(attempt int) time.Duration
}

type Processor struct {
	source   Source
	handlers map[string]Handler
	cfg      Config
	logger   *slog.Logger
}

func New(source Source, cfg Config, logger *slog.Logger) *Processor {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff == nil {
		cfg.Backoff = func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		}
	}
	return &Processor{
		source:   source,
		handlers: make(map[string]Handler),
		cfg:      cfg,
		logger:   logger.With("consumer", cfg.Name),
	}
}

// Handle registers the handler for an event type. Other types are committed without work.
func (p *Processor) Handle(eventType string, h Handler) {
	p.handlers[eventType] = h
}

func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("consumer started")

	for {
		msg, err := p.source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("failed to fetch message", "error", err)
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}

		outcome, eventType := p.process(ctx, msg)
		if ctx.Err() != nil {
			// Shutdown mid-retry: leave the offset uncommitted so the message is redelivered.
			return nil
		}

		if err := p.source.CommitMessages(ctx, msg); err != nil {
			p.logger.Error("failed to commit kafka message", "offset", msg.Offset, "error", err)
			continue
		}
		messagesProcessed.WithLabelValues(eventType, outcome).Inc()
	}
}

func (p *Processor) process(ctx context.Context, msg kafka.Message) (outcome, eventType string) {
	var ev domainEvent.Message
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		// Not our envelope (or corrupt). Commit and move on.
		eventType = kafkaInfra.EventType(msg)
		if eventType == "" {
			eventType = "unknown"
		}
		p.logger.Error("failed to unmarshal event envelope", "offset", msg.Offset, "event_type", eventType, "error", err)
		return "malformed", eventType
	}

	h, ok := p.handlers[ev.Type]
	if !ok {
		return "ignored", ev.Type
	}

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.cfg.Backoff(attempt)
			p.logger.Info("retrying message", "event_id", ev.ID, "attempt", attempt, "max", p.cfg.MaxRetries, "backoff", backoff)
			if !sleep(ctx, backoff) {
				return "interrupted", ev.Type
			}
		}

		started := time.Now()
		err := h(ctx, ev)
		processingDuration.Observe(time.Since(started).Seconds())
		if err == nil {
			return "handled", ev.Type
		}

		p.logger.Error("processing failed", "event_id", ev.ID, "type", ev.Type, "attempt", attempt, "error", err)
	}

	p.logger.Error("dropping message after retries", "event_id", ev.ID, "type", ev.Type, "retries", p.cfg.MaxRetries)
	return "dropped", ev.Type
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
