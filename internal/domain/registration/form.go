package registration

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/validation"
)

// Step is a page of the guest registration wizard. Steps are completed in order.
type Step int

const (
	StepDates Step = iota + 1
	StepDocument
	StepPersonal
	StepContact
	StepAddress
	StepStay
	StepConsent
)

const StepCount = int(StepConsent)

var stepNames = map[Step]string{
	StepDates:    "dates",
	StepDocument: "document",
	StepPersonal: "personal",
	StepContact:  "contact",
	StepAddress:  "address",
	StepStay:     "stay",
	StepConsent:  "consent",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) Valid() bool {
	return s >= StepDates && s <= StepConsent
}

var (
	ErrStepIncomplete = errors.New("registration step incomplete")
	ErrUnknownStep    = errors.New("unknown registration step")
)

// StepError names the step that blocks advancement.
type StepError struct {
	Step   Step
	Reason string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Reason)
}

func (e *StepError) Unwrap() error {
	return ErrStepIncomplete
}

var (
	countryCode = regexp.MustCompile(`^[A-Z]{3}$`)
	postalCode  = regexp.MustCompile(`^[A-Za-z0-9 \-]{3,10}$`)
)

// Form is the server-side copy of the wizard state.
type Form struct {
	CurrentStep Step `json:"current_step"`

	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
	Guests   int       `json:"guests"`

	DocumentType    string `json:"document_type"`
	DocumentNumber  string `json:"document_number"`
	DocumentSupport string `json:"document_support,omitempty"`

	FirstName   string    `json:"first_name"`
	LastName1   string    `json:"last_name_1"`
	LastName2   string    `json:"last_name_2,omitempty"`
	BirthDate   time.Time `json:"birth_date"`
	Gender      string    `json:"gender"`
	Nationality string    `json:"nationality"`

	Phone string `json:"phone"`
	Email string `json:"email"`

	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`

	RoomType string `json:"room_type"`
	BedID    string `json:"bed_id,omitempty"`

	AcceptTerms          bool `json:"accept_terms"`
	AcceptDataProcessing bool `json:"accept_data_processing"`
}

// Rules carries the values step validation depends on.
type Rules struct {
	Now       time.Time
	MaxNights int
	MaxGuests int
}

// ValidateStep checks a single step in isolation.
func (f *Form) ValidateStep(s Step, r Rules) error {
	fail := func(format string, args ...any) error {
		return &StepError{Step: s, Reason: fmt.Sprintf(format, args...)}
	}

	switch s {
	case StepDates:
		if f.CheckIn.IsZero() || f.CheckOut.IsZero() {
			return fail("check-in and check-out are required")
		}
		if booking.CheckInPast(f.CheckIn, r.Now) {
			return fail("check-in is in the past")
		}
		if err := booking.ValidateStay(f.CheckIn, f.CheckOut, r.MaxNights); err != nil {
			return fail("%v", err)
		}
		if f.Guests < 1 {
			return fail("at least one guest is required")
		}
		if r.MaxGuests > 0 && f.Guests > r.MaxGuests {
			return fail("at most %d guests per registration", r.MaxGuests)
		}
	case StepDocument:
		res := validation.ValidateDocument(f.DocumentType, f.DocumentNumber)
		if !res.Valid {
			return fail("%s", res.Message)
		}
	case StepPersonal:
		if strings.TrimSpace(f.FirstName) == "" || strings.TrimSpace(f.LastName1) == "" {
			return fail("first name and first surname are required")
		}
		if f.BirthDate.IsZero() || f.BirthDate.After(r.Now) || r.Now.Year()-f.BirthDate.Year() > 120 {
			return fail("birth date is not plausible")
		}
		switch f.Gender {
		case "M", "F", "O":
		default:
			return fail("gender must be M, F or O")
		}
		if !countryCode.MatchString(f.Nationality) {
			return fail("nationality must be an ISO 3166 alpha-3 code")
		}
		if strings.EqualFold(f.DocumentType, "NIE") && f.Nationality == "ESP" {
			return fail("NIE holders cannot have Spanish nationality")
		}
		if strings.EqualFold(f.DocumentType, "DNI") && f.Nationality != "ESP" {
			return fail("DNI holders must have Spanish nationality")
		}
	case StepContact:
		if _, err := validation.NormalizePhone(f.Phone); err != nil {
			return fail("%v", err)
		}
		if _, err := validation.NormalizeEmail(f.Email); err != nil {
			return fail("%v", err)
		}
	case StepAddress:
		if strings.TrimSpace(f.Street) == "" || strings.TrimSpace(f.City) == "" {
			return fail("street and city are required")
		}
		if !postalCode.MatchString(f.PostalCode) {
			return fail("postal code is not valid")
		}
		if !countryCode.MatchString(f.Country) {
			return fail("country must be an ISO 3166 alpha-3 code")
		}
	case StepStay:
		switch booking.RoomType(f.RoomType) {
		case booking.RoomDormitory, booking.RoomPrivate:
		default:
			return fail("room type must be dormitory or private")
		}
	case StepConsent:
		if !f.AcceptTerms || !f.AcceptDataProcessing {
			return fail("terms and data processing must be accepted")
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownStep, int(s))
	}
	return nil
}

// CanAdvance reports whether every step up to and including the current one validates.
func (f *Form) CanAdvance(r Rules) bool {
	return f.firstInvalid(f.current(), r) == nil
}

// Advance moves to the next step. It fails with a *StepError naming the earliest
// step that does not validate.
func (f *Form) Advance(r Rules) error {
	cur := f.current()
	if err := f.firstInvalid(cur, r); err != nil {
		return err
	}
	if cur < StepConsent {
		f.CurrentStep = cur + 1
	}
	return nil
}

// Complete validates every step; a complete form can be turned into a booking.
func (f *Form) Complete(r Rules) error {
	return f.firstInvalid(StepConsent, r)
}

// Completed lists the steps that validate, in order, stopping at the first gap.
func (f *Form) Completed(r Rules) []Step {
	var done []Step
	for s := StepDates; s <= StepConsent; s++ {
		if f.ValidateStep(s, r) != nil {
			break
		}
		done = append(done, s)
	}
	return done
}

func (f *Form) current() Step {
	if !f.CurrentStep.Valid() {
		return StepDates
	}
	return f.CurrentStep
}

func (f *Form) firstInvalid(upTo Step, r Rules) error {
	for s := StepDates; s <= upTo; s++ {
		if err := f.ValidateStep(s, r); err != nil {
			return err
		}
	}
	return nil
}
