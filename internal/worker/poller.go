package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	domainEvent "github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/event"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/outbox"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_outbox_events_published_total",
		Help: "The total number of events published to Kafka",
	}, []string{"event_type"})
	publishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worker_outbox_publish_errors_total",
		Help: "The total number of failed publish attempts",
	})
	eventsRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worker_outbox_events_requeued_total",
		Help: "Events returned to the queue after being stuck in processing",
	})
)

type OutboxStore interface {
	FetchBatch(ctx context.Context, limit int) ([]*outbox.Event, error)
	MarkProcessed(ctx context.Context, ids []string) error
	MarkFailed(ctx context.Context, ids []string, maxAttempts int) error
	RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Publisher interface {
	SendMessage(ctx context.Context, key, value []byte, eventType string) error
	Topic() string
}

type PollerConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	StaleAfter  time.Duration
}

type OutboxPoller struct {
	store     OutboxStore
	publisher Publisher
	cfg       PollerConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewOutboxPoller(store OutboxStore, publisher Publisher, cfg PollerConfig, logger *slog.Logger) *OutboxPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Minute
	}

	return &OutboxPoller{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Run polls until ctx is cancelled. Stale events are requeued once per StaleAfter.
func (p *OutboxPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	staleTicker := time.NewTicker(p.cfg.StaleAfter)
	defer staleTicker.Stop()

	p.logger.Info("outbox poller started", "topic", p.publisher.Topic(), "interval", p.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-staleTicker.C:
			n, err := p.store.RequeueStale(ctx, p.cfg.StaleAfter)
			if err != nil {
				p.logger.Error("failed to requeue stale events", "error", err)
				continue
			}
			if n > 0 {
				eventsRequeued.Add(float64(n))
				p.logger.Warn("requeued stale outbox events", "count", n)
			}
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error("failed to process batch", "error", err)
			}
		}
	}
}

// ProcessBatch publishes one batch and returns how many events went out.
func (p *OutboxPoller) ProcessBatch(ctx context.Context) (int, error) {
	events, err := p.store.FetchBatch(ctx, p.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	var processedIDs []string
	var failedIDs []string

	for _, e := range events {
		key := []byte(e.CorrelationID)
		if len(key) == 0 {
			key = []byte(e.ID)
		}

		msg := domainEvent.Message{
			ID:            e.ID,
			Type:          e.EventType,
			CorrelationID: e.CorrelationID,
			CausationID:   e.CausationID,
			Producer:      e.Producer,
			OccurredAt:    e.CreatedAt.UTC(),
			Payload:       e.Payload,
		}

		value, err := json.Marshal(msg)
		if err != nil {
			p.logger.Error("failed to marshal event", "event_id", e.ID, "error", err)
			publishErrors.Inc()
			failedIDs = append(failedIDs, e.ID)
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = p.publisher.SendMessage(sendCtx, key, value, e.EventType)
		cancel()

		if err != nil {
			p.logger.Error("failed to send event to kafka", "event_id", e.ID, "error", err)
			publishErrors.Inc()
			failedIDs = append(failedIDs, e.ID)
			continue
		}

		eventsPublished.WithLabelValues(e.EventType).Inc()
		processedIDs = append(processedIDs, e.ID)
	}

	if len(processedIDs) > 0 {
		if err := p.store.MarkProcessed(ctx, processedIDs); err != nil {
			return 0, err
		}
		p.logger.Info("published outbox events", "count", len(processedIDs))
	}

	if len(failedIDs) > 0 {
		if err := p.store.MarkFailed(ctx, failedIDs, p.cfg.MaxAttempts); err != nil {
			p.logger.Error("failed to mark events as failed", "error", err)
		}
	}

	return len(processedIDs), nil
}
