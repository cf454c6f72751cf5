package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
)

const bookingCacheTTL = 30 * time.Second

type GetBooking struct {
	cache    Cache
	bookings BookingStore
}

func NewGetBooking(cache Cache, bookings BookingStore) *GetBooking {
	return &GetBooking{
		cache:    cache,
		bookings: bookings,
	}
}

func (uc *GetBooking) Execute(ctx context.Context, id string) (*booking.Booking, error) {
	cacheKey := bookingCacheKey(id)

	var cached booking.Booking
	if hit, err := uc.cache.Get(ctx, cacheKey, &cached); err != nil {
		slog.WarnContext(ctx, "booking cache read failed", "booking_id", id, "error", err)
	} else if hit {
		return &cached, nil
	}

	b, err := uc.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	if err := uc.cache.Set(ctx, cacheKey, b, bookingCacheTTL); err != nil {
		slog.WarnContext(ctx, "booking cache write failed", "booking_id", id, "error", err)
	}

	return b, nil
}

type ListBookings struct {
	bookings BookingStore
}

func NewListBookings(bookings BookingStore) *ListBookings {
	return &ListBookings{bookings: bookings}
}

func (uc *ListBookings) Execute(ctx context.Context, f booking.Filter) ([]*booking.Booking, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("unknown status %q", f.Status)
	}

	list, err := uc.bookings.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if list == nil {
		list = []*booking.Booking{}
	}
	return list, nil
}
