package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 14, 0, 0, 0, time.UTC)
}

func TestNightsBetween(t *testing.T) {
	assert.Equal(t, 1, NightsBetween(day(2025, 5, 1), day(2025, 5, 2)))
	assert.Equal(t, 3, NightsBetween(day(2025, 4, 29), day(2025, 5, 2)))
	assert.Equal(t, 0, NightsBetween(day(2025, 5, 2), day(2025, 5, 2)))
}

func TestValidateStay(t *testing.T) {
	require.NoError(t, ValidateStay(day(2025, 5, 1), day(2025, 5, 3), 14))
	require.ErrorIs(t, ValidateStay(day(2025, 5, 3), day(2025, 5, 1), 14), ErrInvalidDates)
	require.ErrorIs(t, ValidateStay(day(2025, 5, 1), day(2025, 5, 1), 14), ErrInvalidDates)
	require.ErrorIs(t, ValidateStay(day(2025, 5, 1), day(2025, 5, 20), 14), ErrStayTooLong)
	require.NoError(t, ValidateStay(day(2025, 5, 1), day(2025, 5, 20), 0))
}

func TestTransition(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"confirm pending", StatusPending, StatusConfirmed, false},
		{"cancel pending", StatusPending, StatusCancelled, false},
		{"cancel confirmed", StatusConfirmed, StatusCancelled, false},
		{"reopen cancelled", StatusCancelled, StatusPending, true},
		{"confirm cancelled", StatusCancelled, StatusConfirmed, true},
		{"confirm twice", StatusConfirmed, StatusConfirmed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Booking{Status: tt.from, PaymentStatus: PaymentPending}
			err := b.Transition(tt.to, now)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, b.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, b.Status)
			assert.Equal(t, now, b.UpdatedAt)
		})
	}
}

func TestCancelPaidBookingRefunds(t *testing.T) {
	b := &Booking{Status: StatusConfirmed, PaymentStatus: PaymentPaid}
	require.NoError(t, b.Transition(StatusCancelled, time.Now()))
	assert.Equal(t, PaymentRefunded, b.PaymentStatus)
}

func TestCheckInPast(t *testing.T) {
	west := time.FixedZone("UTC-7", -7*3600)
	east := time.FixedZone("UTC+2", 2*3600)
	today := day(2025, 6, 1)

	assert.False(t, CheckInPast(today, time.Date(2025, 6, 1, 18, 0, 0, 0, west)))
	assert.False(t, CheckInPast(today, time.Date(2025, 6, 1, 0, 30, 0, 0, east)))
	assert.True(t, CheckInPast(today, time.Date(2025, 6, 2, 0, 30, 0, 0, east)))
	assert.True(t, CheckInPast(day(2025, 5, 31), time.Date(2025, 6, 1, 18, 0, 0, 0, west)))
}

func TestSetPaymentStatus(t *testing.T) {
	tests := []struct {
		status  Status
		payment PaymentStatus
		ok      bool
	}{
		{StatusPending, PaymentPaid, true},
		{StatusConfirmed, PaymentFailed, true},
		{StatusConfirmed, PaymentRefunded, false},
		{StatusCancelled, PaymentRefunded, true},
		{StatusCancelled, PaymentFailed, true},
		{StatusCancelled, PaymentPaid, false},
		{StatusCancelled, PaymentPending, false},
	}
	for _, tt := range tests {
		b := &Booking{Status: tt.status, PaymentStatus: PaymentPending}
		err := b.SetPaymentStatus(tt.payment, time.Now())
		if tt.ok {
			require.NoError(t, err, "%s/%s", tt.status, tt.payment)
			assert.Equal(t, tt.payment, b.PaymentStatus)
			continue
		}
		require.ErrorIs(t, err, ErrInvalidTransition, "%s/%s", tt.status, tt.payment)
		assert.Equal(t, PaymentPending, b.PaymentStatus)
	}
}

func TestOccupiesNight(t *testing.T) {
	b := &Booking{CheckIn: day(2025, 5, 1), CheckOut: day(2025, 5, 3), Status: StatusConfirmed}

	assert.True(t, b.OccupiesNight(day(2025, 5, 1)))
	assert.True(t, b.OccupiesNight(day(2025, 5, 2)))
	assert.False(t, b.OccupiesNight(day(2025, 5, 3)))
	assert.False(t, b.OccupiesNight(day(2025, 4, 30)))

	b.Status = StatusCancelled
	assert.False(t, b.OccupiesNight(day(2025, 5, 1)))
}
