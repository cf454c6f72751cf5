package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/inbox"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/outbox"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/pilgrim"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/review"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/room"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/submission"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/postgres"
)

// ErrValidation marks input the caller must fix. Messages wrapping it are safe to return to clients.
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

const producerName = "albergue-api"

// The stores below are implemented by the postgres repositories.

type BookingStore interface {
	Create(ctx context.Context, b *booking.Booking) error
	GetByID(ctx context.Context, id string) (*booking.Booking, error)
	UpdateStatus(ctx context.Context, id string, status booking.Status, payment booking.PaymentStatus) error
	List(ctx context.Context, f booking.Filter) ([]*booking.Booking, error)
	Totals(ctx context.Context, day time.Time) (*booking.Totals, error)
}

type RoomStore interface {
	FindFreeBed(ctx context.Context, roomType booking.RoomType, checkIn, checkOut time.Time, guests int) (*postgres.FreeBed, error)
	List(ctx context.Context, day time.Time) ([]*room.Room, error)
	TotalBeds(ctx context.Context) (int, error)
}

type PilgrimStore interface {
	Create(ctx context.Context, p *pilgrim.Pilgrim) error
	GetByID(ctx context.Context, id string) (*pilgrim.Pilgrim, error)
	ListByBooking(ctx context.Context, bookingID string) ([]*pilgrim.Pilgrim, error)
}

type ReviewStore interface {
	Create(ctx context.Context, r *review.Review) error
	List(ctx context.Context, limit int) ([]*review.Review, error)
}

type SubmissionStore interface {
	Save(ctx context.Context, s *submission.Submission) error
	ListByBooking(ctx context.Context, bookingID string) ([]*submission.Submission, error)
	CountByStatus(ctx context.Context) (map[submission.Status]int, error)
}

type OutboxWriter interface {
	Create(ctx context.Context, e *outbox.Event) error
}

type OutboxReader interface {
	ListByCorrelationID(ctx context.Context, correlationID string) ([]*outbox.Event, error)
}

type InboxStore interface {
	// Claim reports false when the consumer already took the event.
	Claim(ctx context.Context, e *inbox.Event) (bool, error)
	ListForBooking(ctx context.Context, bookingID string) ([]*inbox.Event, error)
}

// Cache is a JSON read-through cache. Misses and cache errors fall back to the store.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

func bookingCacheKey(id string) string {
	return "booking:" + id
}

const dashboardCacheKey = "dashboard:stats"
