package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/event"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/pilgrim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPilgrimParams() RegisterPilgrimParams {
	return RegisterPilgrimParams{
		BookingID:      "b1",
		FirstName:      "Ana",
		LastName1:      "García",
		LastName2:      "López",
		DocumentType:   "dni",
		DocumentNumber: "12345678-z",
		Nationality:    "esp",
		BirthDate:      time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
		Gender:         "F",
		Phone:          "612345678",
		Email:          "Ana@Example.com",
		Street:         "Calle Mayor 1",
		City:           "Mérida",
		PostalCode:     "06800",
		Country:        "ESP",
	}
}

func newRegisterPilgrim(b *booking.Booking, existing ...*pilgrim.Pilgrim) (*RegisterPilgrim, *fakePilgrims, *fakeOutbox) {
	pilgrims := newFakePilgrims(existing...)
	ob := &fakeOutbox{}
	uc := NewRegisterPilgrim(&fakeTx{}, newFakeBookings(b), pilgrims, ob)
	uc.now = func() time.Time { return fixedNow }
	return uc, pilgrims, ob
}

func TestRegisterPilgrim_Success(t *testing.T) {
	uc, pilgrims, ob := newRegisterPilgrim(pendingBooking())

	p, err := uc.Execute(context.Background(), validPilgrimParams())
	require.NoError(t, err)

	assert.Equal(t, pilgrim.DocumentDNI, p.DocumentType)
	assert.Equal(t, "12345678Z", p.DocumentNumber)
	assert.Equal(t, "ESP", p.Nationality)
	assert.Equal(t, "+34612345678", p.Phone)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Contains(t, pilgrims.byID, p.ID)

	require.Len(t, ob.events, 1)
	assert.Equal(t, event.TypeTravelerReportRequested, ob.events[0].EventType)
	assert.Equal(t, "b1", ob.events[0].CorrelationID)

	var req event.TravelerReportRequested
	require.NoError(t, json.Unmarshal(ob.events[0].Payload, &req))
	assert.Equal(t, event.TravelerReportRequested{BookingID: "b1", PilgrimID: p.ID}, req)
}

func TestRegisterPilgrim_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *RegisterPilgrimParams)
	}{
		{"bad dni letter", func(p *RegisterPilgrimParams) { p.DocumentNumber = "12345678A" }},
		{"dni holder not spanish", func(p *RegisterPilgrimParams) { p.Nationality = "FRA" }},
		{"nie holder spanish", func(p *RegisterPilgrimParams) { p.DocumentType = "NIE"; p.DocumentNumber = "X1234567L" }},
		{"unknown document type", func(p *RegisterPilgrimParams) { p.DocumentType = "LICENSE" }},
		{"future birth date", func(p *RegisterPilgrimParams) { p.BirthDate = fixedNow.AddDate(0, 0, 1) }},
		{"bad gender", func(p *RegisterPilgrimParams) { p.Gender = "X" }},
		{"bad country", func(p *RegisterPilgrimParams) { p.Country = "ES" }},
		{"missing street", func(p *RegisterPilgrimParams) { p.Street = "" }},
		{"bad phone", func(p *RegisterPilgrimParams) { p.Phone = "12" }},
		{"control char in name", func(p *RegisterPilgrimParams) { p.FirstName = "Ana\x01Maria" }},
		{"newline in street", func(p *RegisterPilgrimParams) { p.Street = "Calle Mayor 1\nPiso 2" }},
		{"invalid utf8 city", func(p *RegisterPilgrimParams) { p.City = "M\xe9rida" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, _, ob := newRegisterPilgrim(pendingBooking())
			params := validPilgrimParams()
			tt.modify(&params)

			_, err := uc.Execute(context.Background(), params)
			require.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, ob.events)
		})
	}
}

func TestRegisterPilgrim_ForeignPassport(t *testing.T) {
	uc, _, _ := newRegisterPilgrim(pendingBooking())
	params := validPilgrimParams()
	params.DocumentType = "PASSPORT"
	params.DocumentNumber = "ab123456"
	params.Nationality = "DEU"

	p, err := uc.Execute(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "AB123456", p.DocumentNumber)
}

func TestRegisterPilgrim_BookingState(t *testing.T) {
	t.Run("missing booking", func(t *testing.T) {
		uc, _, _ := newRegisterPilgrim(pendingBooking())
		params := validPilgrimParams()
		params.BookingID = "other"
		_, err := uc.Execute(context.Background(), params)
		require.ErrorIs(t, err, booking.ErrNotFound)
	})

	t.Run("cancelled booking", func(t *testing.T) {
		b := pendingBooking()
		b.Status = booking.StatusCancelled
		uc, _, _ := newRegisterPilgrim(b)
		_, err := uc.Execute(context.Background(), validPilgrimParams())
		require.ErrorIs(t, err, ErrBookingCancelled)
	})

	t.Run("all guests registered", func(t *testing.T) {
		uc, _, ob := newRegisterPilgrim(pendingBooking(), &pilgrim.Pilgrim{ID: "p0", BookingID: "b1"})
		_, err := uc.Execute(context.Background(), validPilgrimParams())
		require.ErrorIs(t, err, ErrBookingFull)
		assert.Empty(t, ob.events)
	})
}
