package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/event"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/outbox"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/postgres"

	"github.com/google/uuid"
)

type UpdateBookingStatus struct {
	txManager  postgres.Transactor
	bookings   BookingStore
	outboxRepo OutboxWriter
	cache      Cache
	now        func() time.Time
}

func NewUpdateBookingStatus(
	txManager postgres.Transactor,
	bookings BookingStore,
	outboxRepo OutboxWriter,
	cache Cache,
) *UpdateBookingStatus {
	return &UpdateBookingStatus{
		txManager:  txManager,
		bookings:   bookings,
		outboxRepo: outboxRepo,
		cache:      cache,
		now:        time.Now,
	}
}

type UpdateBookingStatusParams struct {
	BookingID     string                `json:"booking_id"`
	Status        booking.Status        `json:"status"`
	PaymentStatus booking.PaymentStatus `json:"payment_status,omitempty"`
}

// Execute applies an admin status change. Status may equal the current status when
// only the payment status changes.
func (uc *UpdateBookingStatus) Execute(ctx context.Context, params UpdateBookingStatusParams) (*booking.Booking, error) {
	if params.Status != "" && !params.Status.Valid() {
		return nil, invalid("unknown status %q", params.Status)
	}
	if params.PaymentStatus != "" && !params.PaymentStatus.Valid() {
		return nil, invalid("unknown payment status %q", params.PaymentStatus)
	}
	if params.Status == "" && params.PaymentStatus == "" {
		return nil, invalid("status or payment_status is required")
	}

	var updated *booking.Booking
	err := uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		b, err := uc.bookings.GetByID(txCtx, params.BookingID)
		if err != nil {
			return err
		}

		from := b.Status
		now := uc.now()
		if params.Status != "" && params.Status != b.Status {
			if err := b.Transition(params.Status, now); err != nil {
				return err
			}
		}
		if params.PaymentStatus != "" && params.PaymentStatus != b.PaymentStatus {
			if err := b.SetPaymentStatus(params.PaymentStatus, now); err != nil {
				return err
			}
		}

		if err := uc.bookings.UpdateStatus(txCtx, b.ID, b.Status, b.PaymentStatus); err != nil {
			return err
		}

		payload, err := json.Marshal(event.BookingStatusChanged{
			BookingID:     b.ID,
			From:          string(from),
			To:            string(b.Status),
			PaymentStatus: string(b.PaymentStatus),
		})
		if err != nil {
			return fmt.Errorf("marshal status change: %w", err)
		}

		if err := uc.outboxRepo.Create(txCtx, &outbox.Event{
			ID:            uuid.New().String(),
			EventType:     event.TypeBookingStatusChanged,
			Payload:       payload,
			Status:        outbox.StatusNew,
			CorrelationID: b.ID,
			Producer:      producerName,
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		updated = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	if err := uc.cache.Delete(ctx, bookingCacheKey(updated.ID), dashboardCacheKey); err != nil {
		slog.WarnContext(ctx, "cache invalidation failed", "booking_id", updated.ID, "error", err)
	}

	return updated, nil
}
