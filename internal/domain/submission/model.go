package submission

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Submission tracks one traveler report delivery to the government endpoint.
// It is stored as pending before the POST and moved to sent or failed after it,
// so a pending row older than the client timeout means the outcome was lost.
type Submission struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id,omitempty"`
	BookingID    string    `json:"booking_id"`
	PilgrimID    string    `json:"pilgrim_id"`
	Status       Status    `json:"status"`
	Attempts     int       `json:"attempts"`
	ResponseCode int       `json:"response_code,omitempty"`
	Reference    string    `json:"reference,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
