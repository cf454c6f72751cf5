package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/event"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/outbox"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/postgres"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type CreateBooking struct {
	txManager  postgres.Transactor
	bookings   BookingStore
	rooms      RoomStore
	outboxRepo OutboxWriter
	validate   *validator.Validate
	maxNights  int
	maxGuests  int
	now        func() time.Time
}

func NewCreateBooking(
	txManager postgres.Transactor,
	bookings BookingStore,
	rooms RoomStore,
	outboxRepo OutboxWriter,
	maxNights, maxGuests int,
) *CreateBooking {
	return &CreateBooking{
		txManager:  txManager,
		bookings:   bookings,
		rooms:      rooms,
		outboxRepo: outboxRepo,
		validate:   validation.New(),
		maxNights:  maxNights,
		maxGuests:  maxGuests,
		now:        time.Now,
	}
}

type CreateBookingParams struct {
	GuestName  string    `json:"guest_name" validate:"required,min=2,max=120"`
	GuestEmail string    `json:"guest_email" validate:"required"`
	GuestPhone string    `json:"guest_phone" validate:"required,phone_es"`
	RoomType   string    `json:"room_type" validate:"required,oneof=dormitory private"`
	CheckIn    time.Time `json:"check_in" validate:"required"`
	CheckOut   time.Time `json:"check_out" validate:"required"`
	Guests     int       `json:"guests" validate:"min=1"`
}

// Execute books a bed. A dormitory booking holds one bed for one guest; a private
// booking holds the room's single bed row for up to the room capacity.
func (uc *CreateBooking) Execute(ctx context.Context, params CreateBookingParams) (*booking.Booking, error) {
	if err := uc.validate.Struct(params); err != nil {
		return nil, invalid("%s", validation.Describe(err))
	}

	email, err := validation.NormalizeEmail(params.GuestEmail)
	if err != nil {
		return nil, invalid("%v", err)
	}
	phone, err := validation.NormalizePhone(params.GuestPhone)
	if err != nil {
		return nil, invalid("%v", err)
	}

	now := uc.now()
	if booking.CheckInPast(params.CheckIn, now) {
		return nil, invalid("check-in is in the past")
	}
	if err := booking.ValidateStay(params.CheckIn, params.CheckOut, uc.maxNights); err != nil {
		return nil, invalid("%v", err)
	}

	roomType := booking.RoomType(params.RoomType)
	if roomType == booking.RoomDormitory && params.Guests != 1 {
		return nil, invalid("dormitory bookings are for one guest; book one bed per pilgrim")
	}
	if uc.maxGuests > 0 && params.Guests > uc.maxGuests {
		return nil, invalid("at most %d guests per booking", uc.maxGuests)
	}

	newBooking := &booking.Booking{
		ID:            uuid.New().String(),
		GuestName:     strings.TrimSpace(params.GuestName),
		GuestEmail:    email,
		GuestPhone:    phone,
		RoomType:      roomType,
		CheckIn:       params.CheckIn,
		CheckOut:      params.CheckOut,
		Guests:        params.Guests,
		Status:        booking.StatusPending,
		PaymentStatus: booking.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		bed, err := uc.rooms.FindFreeBed(txCtx, roomType, params.CheckIn, params.CheckOut, params.Guests)
		if err != nil {
			return err
		}
		newBooking.BedID = bed.BedID
		newBooking.TotalPrice = float64(newBooking.Nights()) * bed.PricePerNight

		if err := uc.bookings.Create(txCtx, newBooking); err != nil {
			return err
		}

		payload, err := json.Marshal(newBooking)
		if err != nil {
			return fmt.Errorf("marshal booking: %w", err)
		}

		return uc.outboxRepo.Create(txCtx, &outbox.Event{
			ID:            uuid.New().String(),
			EventType:     event.TypeBookingCreated,
			Payload:       payload,
			Status:        outbox.StatusNew,
			CorrelationID: newBooking.ID,
			Producer:      producerName,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	return newBooking, nil
}
