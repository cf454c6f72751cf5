package registration

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func rules() Rules {
	return Rules{Now: now, MaxNights: 14, MaxGuests: 4}
}

func completeForm() *Form {
	return &Form{
		CurrentStep:          StepDates,
		CheckIn:              time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:             time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
		Guests:               1,
		DocumentType:         "DNI",
		DocumentNumber:       "12345678Z",
		FirstName:            "Ana",
		LastName1:            "García",
		BirthDate:            time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
		Gender:               "F",
		Nationality:          "ESP",
		Phone:                "600123456",
		Email:                "ana@example.com",
		Street:               "Calle Real 1",
		City:                 "Mérida",
		PostalCode:           "06800",
		Country:              "ESP",
		RoomType:             "dormitory",
		AcceptTerms:          true,
		AcceptDataProcessing: true,
	}
}

func TestAdvanceWalksAllSteps(t *testing.T) {
	f := completeForm()
	for i := 1; i < StepCount; i++ {
		require.NoError(t, f.Advance(rules()))
	}
	assert.Equal(t, StepConsent, f.CurrentStep)

	// Advancing at the last step stays there.
	require.NoError(t, f.Advance(rules()))
	assert.Equal(t, StepConsent, f.CurrentStep)
	require.NoError(t, f.Complete(rules()))
}

func TestAdvanceBlockedByCurrentStep(t *testing.T) {
	f := completeForm()
	f.CurrentStep = StepDocument
	f.DocumentNumber = "12345678A"

	err := f.Advance(rules())
	require.ErrorIs(t, err, ErrStepIncomplete)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepDocument, stepErr.Step)
	assert.Equal(t, StepDocument, f.CurrentStep)
	assert.False(t, f.CanAdvance(rules()))
}

func TestAdvanceBlockedByEarlierStep(t *testing.T) {
	f := completeForm()
	f.CurrentStep = StepAddress
	f.CheckOut = f.CheckIn

	err := f.Advance(rules())
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepDates, stepErr.Step)
}

func TestLaterStepsDoNotGateEarlierOnes(t *testing.T) {
	f := completeForm()
	f.AcceptTerms = false

	assert.True(t, f.CanAdvance(rules()))
	require.ErrorIs(t, f.Complete(rules()), ErrStepIncomplete)
	assert.Equal(t, []Step{StepDates, StepDocument, StepPersonal, StepContact, StepAddress, StepStay}, f.Completed(rules()))
}

func TestValidateStepRules(t *testing.T) {
	tests := []struct {
		name   string
		step   Step
		mutate func(f *Form)
	}{
		{"past check-in", StepDates, func(f *Form) { f.CheckIn = now.AddDate(0, 0, -2) }},
		{"too long", StepDates, func(f *Form) { f.CheckOut = f.CheckIn.AddDate(0, 0, 20) }},
		{"no guests", StepDates, func(f *Form) { f.Guests = 0 }},
		{"too many guests", StepDates, func(f *Form) { f.Guests = 5 }},
		{"bad nie", StepDocument, func(f *Form) { f.DocumentType = "NIE" }},
		{"missing name", StepPersonal, func(f *Form) { f.FirstName = " " }},
		{"future birth", StepPersonal, func(f *Form) { f.BirthDate = now.AddDate(1, 0, 0) }},
		{"bad gender", StepPersonal, func(f *Form) { f.Gender = "X" }},
		{"alpha-2 nationality", StepPersonal, func(f *Form) { f.Nationality = "ES" }},
		{"dni foreigner", StepPersonal, func(f *Form) { f.Nationality = "FRA" }},
		{"bad phone", StepContact, func(f *Form) { f.Phone = "12" }},
		{"bad email", StepContact, func(f *Form) { f.Email = "ana@" }},
		{"no city", StepAddress, func(f *Form) { f.City = "" }},
		{"bad postal", StepAddress, func(f *Form) { f.PostalCode = "!!" }},
		{"suite", StepStay, func(f *Form) { f.RoomType = "suite" }},
		{"no consent", StepConsent, func(f *Form) { f.AcceptDataProcessing = false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := completeForm()
			require.NoError(t, f.ValidateStep(tt.step, rules()))
			tt.mutate(f)
			require.ErrorIs(t, f.ValidateStep(tt.step, rules()), ErrStepIncomplete)
		})
	}
}

func TestUnknownStep(t *testing.T) {
	f := completeForm()
	require.ErrorIs(t, f.ValidateStep(Step(9), rules()), ErrUnknownStep)
	assert.Equal(t, "step(9)", Step(9).String())
	assert.Equal(t, "consent", StepConsent.String())
}

func TestNIEForeigner(t *testing.T) {
	f := completeForm()
	f.DocumentType = "NIE"
	f.DocumentNumber = "X1234567L"
	f.Nationality = "PRT"
	require.NoError(t, f.ValidateStep(StepPersonal, rules()))

	f.Nationality = "ESP"
	require.ErrorIs(t, f.ValidateStep(StepPersonal, rules()), ErrStepIncomplete)
}
