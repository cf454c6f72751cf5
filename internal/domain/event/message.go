package event

import (
	"encoding/json"
	"time"
)

const (
	TypeBookingCreated          = "BookingCreated"
	TypeBookingStatusChanged    = "BookingStatusChanged"
	TypeTravelerReportRequested = "TravelerReportRequested"
)

// Message is the envelope published to Kafka.
// Payload is kept as raw JSON produced by the originating service.
type Message struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	CorrelationID string          `json:"correlation_id"`
	CausationID   string          `json:"causation_id,omitempty"`
	Producer      string          `json:"producer"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

type BookingStatusChanged struct {
	BookingID     string `json:"booking_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	PaymentStatus string `json:"payment_status"`
}

// TravelerReportRequested asks the reporter to send the Parte de Viajeros for one
// pilgrim of a booking.
type TravelerReportRequested struct {
	BookingID string `json:"booking_id"`
	PilgrimID string `json:"pilgrim_id"`
}
