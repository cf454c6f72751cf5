package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Memory keeps windows in process memory. Run must be started to evict expired
// windows, otherwise the map only grows.
type Memory struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func NewMemory(cfg Config) *Memory {
	return &Memory{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(m.cfg.Window)}
		m.windows[key] = w
	}

	if w.count >= m.cfg.Requests {
		return Decision{Allowed: false, Limit: m.cfg.Requests, Remaining: 0, ResetAt: w.resetAt}, nil
	}
	w.count++

	return Decision{
		Allowed:   true,
		Limit:     m.cfg.Requests,
		Remaining: m.cfg.Requests - w.count,
		ResetAt:   w.resetAt,
	}, nil
}

// Cleanup drops every window that has expired and returns how many were removed.
func (m *Memory) Cleanup() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Run evicts expired windows every interval until ctx is cancelled.
func (m *Memory) Run(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Cleanup(); n > 0 {
				logger.Debug("rate limit windows evicted", "count", n)
			}
		}
	}
}
