package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/inbox"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InboxRepository keeps the (consumer, event id) pairs already handled.
type InboxRepository struct {
	pool *pgxpool.Pool
}

func NewInboxRepository(pool *pgxpool.Pool) *InboxRepository {
	return &InboxRepository{pool: pool}
}

// Claim records e for its consumer and reports whether this call took it.
// It joins the transaction in ctx, so a rollback releases the claim.
func (r *InboxRepository) Claim(ctx context.Context, e *inbox.Event) (bool, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO inbox_events (consumer, event_id, event_type, correlation_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		RETURNING processed_at`,
		e.Consumer, e.EventID, e.EventType, nullIfEmpty(e.CorrelationID))

	if err := row.Scan(&e.ProcessedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("claim %s event %s: %w", e.Consumer, e.EventID, err)
	}
	return true, nil
}

// ListForBooking returns what every consumer did for one booking, oldest first.
func (r *InboxRepository) ListForBooking(ctx context.Context, bookingID string) ([]*inbox.Event, error) {
	if !isUUID(bookingID) {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT consumer, event_id, event_type, processed_at
		FROM inbox_events
		WHERE correlation_id = $1
		ORDER BY processed_at, consumer`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list inbox for booking %s: %w", bookingID, err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*inbox.Event, error) {
		e := &inbox.Event{CorrelationID: bookingID}
		return e, row.Scan(&e.Consumer, &e.EventID, &e.EventType, &e.ProcessedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("scan inbox for booking %s: %w", bookingID, err)
	}
	return events, nil
}
