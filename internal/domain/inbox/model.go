package inbox

import "time"

// Event records that a consumer already handled a message. A second delivery of
// the same (consumer, event id) pair is skipped.
type Event struct {
	Consumer      string    `json:"consumer"`
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	CorrelationID string    `json:"correlation_id"`
	ProcessedAt   time.Time `json:"processed_at"`
}
