package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/event"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/outbox"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/room"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCreateBooking(rooms *fakeRooms) (*CreateBooking, *fakeBookings, *fakeOutbox, *fakeTx) {
	tx := &fakeTx{}
	bookings := newFakeBookings()
	ob := &fakeOutbox{}
	uc := NewCreateBooking(tx, bookings, rooms, ob, 14, 4)
	uc.now = func() time.Time { return fixedNow }
	return uc, bookings, ob, tx
}

func validBookingParams() CreateBookingParams {
	return CreateBookingParams{
		GuestName:  "  Ana García ",
		GuestEmail: "Ana@Example.com",
		GuestPhone: "612 345 678",
		RoomType:   "dormitory",
		CheckIn:    day(1),
		CheckOut:   day(3),
		Guests:     1,
	}
}

func TestCreateBooking_Success(t *testing.T) {
	rooms := &fakeRooms{free: &postgres.FreeBed{BedID: "bed-1", RoomID: "room-1", PricePerNight: 15}}
	uc, bookings, ob, tx := newCreateBooking(rooms)

	b, err := uc.Execute(context.Background(), validBookingParams())
	require.NoError(t, err)

	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, "Ana García", b.GuestName)
	assert.Equal(t, "ana@example.com", b.GuestEmail)
	assert.Equal(t, "+34612345678", b.GuestPhone)
	assert.Equal(t, "bed-1", b.BedID)
	assert.Equal(t, 30.0, b.TotalPrice)
	assert.Equal(t, booking.StatusPending, b.Status)
	assert.Equal(t, booking.PaymentPending, b.PaymentStatus)
	assert.Equal(t, booking.RoomDormitory, rooms.lastQuery.roomType)

	stored, err := bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.BedID, stored.BedID)

	require.Len(t, ob.events, 1)
	e := ob.events[0]
	assert.Equal(t, event.TypeBookingCreated, e.EventType)
	assert.Equal(t, outbox.StatusNew, e.Status)
	assert.Equal(t, b.ID, e.CorrelationID)

	var payload booking.Booking
	require.NoError(t, json.Unmarshal(e.Payload, &payload))
	assert.Equal(t, b.ID, payload.ID)
}

func TestCreateBooking_PrivateRoomPricedPerRoom(t *testing.T) {
	rooms := &fakeRooms{free: &postgres.FreeBed{BedID: "bed-p", RoomID: "room-p", PricePerNight: 45}}
	uc, _, _, _ := newCreateBooking(rooms)

	params := validBookingParams()
	params.RoomType = "private"
	params.Guests = 2
	params.CheckOut = day(4)

	b, err := uc.Execute(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 135.0, b.TotalPrice)
	assert.Equal(t, 2, rooms.lastQuery.guests)
}

func TestCreateBooking_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *CreateBookingParams)
	}{
		{"missing name", func(p *CreateBookingParams) { p.GuestName = "" }},
		{"bad email", func(p *CreateBookingParams) { p.GuestEmail = "ana@" }},
		{"bad phone", func(p *CreateBookingParams) { p.GuestPhone = "123" }},
		{"unknown room type", func(p *CreateBookingParams) { p.RoomType = "suite" }},
		{"check-out before check-in", func(p *CreateBookingParams) { p.CheckOut = day(0) }},
		{"past check-in", func(p *CreateBookingParams) { p.CheckIn = day(-1) }},
		{"stay too long", func(p *CreateBookingParams) { p.CheckOut = day(20) }},
		{"several guests in dormitory", func(p *CreateBookingParams) { p.Guests = 2 }},
		{"too many guests", func(p *CreateBookingParams) { p.RoomType = "private"; p.Guests = 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, _, ob, tx := newCreateBooking(&fakeRooms{free: &postgres.FreeBed{BedID: "bed-1", PricePerNight: 15}})
			params := validBookingParams()
			tt.modify(&params)

			_, err := uc.Execute(context.Background(), params)
			require.ErrorIs(t, err, ErrValidation)
			assert.Zero(t, tx.calls)
			assert.Empty(t, ob.events)
		})
	}
}

func TestCreateBooking_TodayWestOfUTC(t *testing.T) {
	uc, _, _, _ := newCreateBooking(&fakeRooms{free: &postgres.FreeBed{BedID: "bed-1", RoomID: "room-1", PricePerNight: 15}})
	// 18:00 on 1 June in UTC-7 is already 2 June in UTC.
	uc.now = func() time.Time { return time.Date(2025, 6, 1, 18, 0, 0, 0, time.FixedZone("UTC-7", -7*3600)) }

	params := validBookingParams()
	params.CheckIn = day(0)
	params.CheckOut = day(1)
	_, err := uc.Execute(context.Background(), params)
	require.NoError(t, err)

	params.CheckIn = day(-1)
	_, err = uc.Execute(context.Background(), params)
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateBooking_NoBed(t *testing.T) {
	uc, _, ob, _ := newCreateBooking(&fakeRooms{})

	_, err := uc.Execute(context.Background(), validBookingParams())
	require.ErrorIs(t, err, room.ErrNoBedAvailable)
	assert.Empty(t, ob.events)
}
