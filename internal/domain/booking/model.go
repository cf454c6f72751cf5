package booking

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

type RoomType string

const (
	RoomDormitory RoomType = "dormitory"
	RoomPrivate   RoomType = "private"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrInvalidDates      = errors.New("check-out must be after check-in")
	ErrStayTooLong       = errors.New("stay exceeds maximum nights")
)

type Booking struct {
	ID            string        `json:"id"`
	GuestName     string        `json:"guest_name"`
	GuestEmail    string        `json:"guest_email"`
	GuestPhone    string        `json:"guest_phone"`
	RoomType      RoomType      `json:"room_type"`
	BedID         string        `json:"bed_id,omitempty"`
	CheckIn       time.Time     `json:"check_in"`
	CheckOut      time.Time     `json:"check_out"`
	Guests        int           `json:"guests"`
	TotalPrice    float64       `json:"total_price"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Nights counts calendar nights between check-in and check-out.
func (b *Booking) Nights() int {
	return NightsBetween(b.CheckIn, b.CheckOut)
}

// CalendarDay is the date of t in its own zone, as UTC midnight. Stay dates are
// stored that way, so comparisons go through it.
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func NightsBetween(checkIn, checkOut time.Time) int {
	return int(CalendarDay(checkOut).Sub(CalendarDay(checkIn)).Hours() / 24)
}

// CheckInPast reports whether checkIn falls on a date before the date of now.
func CheckInPast(checkIn, now time.Time) bool {
	return CalendarDay(checkIn).Before(CalendarDay(now))
}

// ValidateStay checks the date range against the albergue's maximum stay.
func ValidateStay(checkIn, checkOut time.Time, maxNights int) error {
	n := NightsBetween(checkIn, checkOut)
	if n < 1 {
		return ErrInvalidDates
	}
	if maxNights > 0 && n > maxNights {
		return fmt.Errorf("%w: %d > %d", ErrStayTooLong, n, maxNights)
	}
	return nil
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentRefunded, PaymentFailed:
		return true
	}
	return false
}

// Transition moves the booking to next, adjusting the payment status when a paid
// booking is cancelled.
func (b *Booking) Transition(next Status, now time.Time) error {
	if !b.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, next)
	}
	b.Status = next
	if next == StatusCancelled && b.PaymentStatus == PaymentPaid {
		b.PaymentStatus = PaymentRefunded
	}
	b.UpdatedAt = now
	return nil
}

// SetPaymentStatus records a payment change that agrees with the booking status:
// a cancelled booking cannot be pending or paid, and only a cancelled one is refunded.
func (b *Booking) SetPaymentStatus(p PaymentStatus, now time.Time) error {
	cancelled := b.Status == StatusCancelled
	if (cancelled && (p == PaymentPaid || p == PaymentPending)) || (!cancelled && p == PaymentRefunded) {
		return fmt.Errorf("%w: payment %s on %s booking", ErrInvalidTransition, p, b.Status)
	}
	b.PaymentStatus = p
	b.UpdatedAt = now
	return nil
}

// OccupiesNight reports whether the booking holds a bed on the night starting at day.
func (b *Booking) OccupiesNight(day time.Time) bool {
	if b.Status == StatusCancelled {
		return false
	}
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	in := time.Date(b.CheckIn.Year(), b.CheckIn.Month(), b.CheckIn.Day(), 0, 0, 0, 0, time.UTC)
	out := time.Date(b.CheckOut.Year(), b.CheckOut.Month(), b.CheckOut.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(in) && d.Before(out)
}

// Filter narrows admin listings. Zero values mean no constraint.
type Filter struct {
	Status Status
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Totals aggregates the figures shown on the admin dashboard.
type Totals struct {
	ByStatus      map[Status]int
	Revenue       float64
	OccupiedBeds  int
	ArrivalsToday int
}
