package usecase

import (
	"context"
	"fmt"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/inbox"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/outbox"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/pilgrim"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/submission"
)

type TimelineDTO struct {
	Booking     *booking.Booking         `json:"booking"`
	Pilgrims    []*pilgrim.Pilgrim       `json:"pilgrims"`
	Outbox      []*outbox.Event          `json:"outbox"`
	Inbox       []*inbox.Event           `json:"inbox"`
	Submissions []*submission.Submission `json:"submissions"`
}

type GetBookingTimeline struct {
	bookings    BookingStore
	pilgrims    PilgrimStore
	outboxRepo  OutboxReader
	inboxRepo   InboxStore
	submissions SubmissionStore
}

func NewGetBookingTimeline(
	bookings BookingStore,
	pilgrims PilgrimStore,
	outboxRepo OutboxReader,
	inboxRepo InboxStore,
	submissions SubmissionStore,
) *GetBookingTimeline {
	return &GetBookingTimeline{
		bookings:    bookings,
		pilgrims:    pilgrims,
		outboxRepo:  outboxRepo,
		inboxRepo:   inboxRepo,
		submissions: submissions,
	}
}

func (uc *GetBookingTimeline) Execute(ctx context.Context, bookingID string) (*TimelineDTO, error) {
	b, err := uc.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	pilgrims, err := uc.pilgrims.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get pilgrims: %w", err)
	}

	outboxEvents, err := uc.outboxRepo.ListByCorrelationID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get outbox events: %w", err)
	}

	inboxEvents, err := uc.inboxRepo.ListForBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get inbox events: %w", err)
	}

	subs, err := uc.submissions.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get submissions: %w", err)
	}

	return &TimelineDTO{
		Booking:     b,
		Pilgrims:    pilgrims,
		Outbox:      outboxEvents,
		Inbox:       inboxEvents,
		Submissions: subs,
	}, nil
}
