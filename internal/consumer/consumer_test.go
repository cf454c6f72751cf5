package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	domainEvent "github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/event"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	msgs chan kafka.Message

	mu        sync.Mutex
	committed []int64
	onCommit  func(n int)
}

func newFakeSource(msgs ...kafka.Message) *fakeSource {
	ch := make(chan kafka.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &fakeSource{msgs: ch}
}

func (s *fakeSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-s.msgs:
		return m, nil
	}
}

func (s *fakeSource) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	for _, m := range msgs {
		s.committed = append(s.committed, m.Offset)
	}
	n := len(s.committed)
	s.mu.Unlock()
	if s.onCommit != nil {
		s.onCommit(n)
	}
	return nil
}

func envelope(t *testing.T, offset int64, id, typ string) kafka.Message {
	t.Helper()
	value, err := json.Marshal(domainEvent.Message{ID: id, Type: typ, Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: value}
}

func runUntilCommitted(t *testing.T, src *fakeSource, p *Processor, want int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src.onCommit = func(n int) {
		if n == want {
			cancel()
		}
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not finish")
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noBackoff(int) time.Duration { return time.Millisecond }

func TestProcessor_DispatchesAndCommits(t *testing.T) {
	src := newFakeSource(
		envelope(t, 1, "e1", domainEvent.TypeTravelerReportRequested),
		envelope(t, 2, "e2", domainEvent.TypeBookingCreated),
		kafka.Message{Offset: 3, Value: []byte("garbage")},
	)

	var handled []string
	p := New(src, Config{Name: "test", MaxRetries: 2, Backoff: noBackoff}, testLogger())
	p.Handle(domainEvent.TypeTravelerReportRequested, func(_ context.Context, ev domainEvent.Message) error {
		handled = append(handled, ev.ID)
		return nil
	})

	runUntilCommitted(t, src, p, 3)

	assert.Equal(t, []string{"e1"}, handled)
	assert.Equal(t, []int64{1, 2, 3}, src.committed)
}

func TestProcessor_RetriesThenSucceeds(t *testing.T) {
	src := newFakeSource(envelope(t, 7, "e1", domainEvent.TypeTravelerReportRequested))

	calls := 0
	p := New(src, Config{Name: "test", MaxRetries: 3, Backoff: noBackoff}, testLogger())
	p.Handle(domainEvent.TypeTravelerReportRequested, func(context.Context, domainEvent.Message) error {
		calls++
		if calls < 3 {
			return errors.New("database unavailable")
		}
		return nil
	})

	runUntilCommitted(t, src, p, 1)
	assert.Equal(t, 3, calls)
}

func TestProcessor_DropsAfterMaxRetries(t *testing.T) {
	src := newFakeSource(envelope(t, 9, "e1", domainEvent.TypeTravelerReportRequested))

	calls := 0
	p := New(src, Config{Name: "test", MaxRetries: 2, Backoff: noBackoff}, testLogger())
	p.Handle(domainEvent.TypeTravelerReportRequested, func(context.Context, domainEvent.Message) error {
		calls++
		return errors.New("always failing")
	})

	runUntilCommitted(t, src, p, 1)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int64{9}, src.committed)
}
