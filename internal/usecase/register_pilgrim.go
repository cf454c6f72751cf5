package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/event"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/outbox"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/pilgrim"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/postgres"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrBookingFull      = errors.New("all guests of this booking are already registered")
	ErrBookingCancelled = errors.New("booking is cancelled")
)

type RegisterPilgrim struct {
	txManager  postgres.Transactor
	bookings   BookingStore
	pilgrims   PilgrimStore
	outboxRepo OutboxWriter
	validate   *validator.Validate
	now        func() time.Time
}

func NewRegisterPilgrim(
	txManager postgres.Transactor,
	bookings BookingStore,
	pilgrims PilgrimStore,
	outboxRepo OutboxWriter,
) *RegisterPilgrim {
	return &RegisterPilgrim{
		txManager:  txManager,
		bookings:   bookings,
		pilgrims:   pilgrims,
		outboxRepo: outboxRepo,
		validate:   validation.New(),
		now:        time.Now,
	}
}

type RegisterPilgrimParams struct {
	BookingID       string     `json:"-" validate:"required"`
	FirstName       string     `json:"first_name" validate:"required,max=60,plaintext"`
	LastName1       string     `json:"last_name_1" validate:"required,max=60,plaintext"`
	LastName2       string     `json:"last_name_2" validate:"omitempty,max=60,plaintext"`
	DocumentType    string     `json:"document_type" validate:"required,oneof=DNI NIE PASSPORT OTHER"`
	DocumentNumber  string     `json:"document_number" validate:"required,document=DocumentType"`
	DocumentSupport string     `json:"document_support" validate:"omitempty,alphanum,max=12"`
	IssueDate       *time.Time `json:"issue_date"`
	Nationality     string     `json:"nationality" validate:"required,len=3,uppercase"`
	BirthDate       time.Time  `json:"birth_date" validate:"required"`
	Gender          string     `json:"gender" validate:"required,oneof=M F O"`
	Phone           string     `json:"phone" validate:"omitempty,phone_es"`
	Email           string     `json:"email" validate:"omitempty,email"`
	Street          string     `json:"street" validate:"required,max=200,plaintext"`
	City            string     `json:"city" validate:"required,max=100,plaintext"`
	PostalCode      string     `json:"postal_code" validate:"required,max=10,plaintext"`
	Country         string     `json:"country" validate:"required,len=3,uppercase"`
}

// Execute stores the pilgrim and queues the traveler report in the same transaction.
func (uc *RegisterPilgrim) Execute(ctx context.Context, params RegisterPilgrimParams) (*pilgrim.Pilgrim, error) {
	params.DocumentType = strings.ToUpper(strings.TrimSpace(params.DocumentType))
	params.DocumentNumber = validation.NormalizeDocument(params.DocumentNumber)
	params.Nationality = strings.ToUpper(strings.TrimSpace(params.Nationality))
	params.Country = strings.ToUpper(strings.TrimSpace(params.Country))

	if err := uc.validate.Struct(params); err != nil {
		return nil, invalid("%s", validation.Describe(err))
	}

	now := uc.now()
	if params.BirthDate.After(now) {
		return nil, invalid("birth date is in the future")
	}
	switch pilgrim.DocumentType(params.DocumentType) {
	case pilgrim.DocumentDNI:
		if params.Nationality != "ESP" {
			return nil, invalid("DNI holders must have Spanish nationality")
		}
	case pilgrim.DocumentNIE:
		if params.Nationality == "ESP" {
			return nil, invalid("NIE holders cannot have Spanish nationality")
		}
	}

	p := &pilgrim.Pilgrim{
		ID:              uuid.New().String(),
		BookingID:       params.BookingID,
		FirstName:       strings.TrimSpace(params.FirstName),
		LastName1:       strings.TrimSpace(params.LastName1),
		LastName2:       strings.TrimSpace(params.LastName2),
		DocumentType:    pilgrim.DocumentType(params.DocumentType),
		DocumentNumber:  params.DocumentNumber,
		DocumentSupport: strings.ToUpper(params.DocumentSupport),
		IssueDate:       params.IssueDate,
		Nationality:     params.Nationality,
		BirthDate:       params.BirthDate,
		Gender:          params.Gender,
		Address: pilgrim.Address{
			Street:     strings.TrimSpace(params.Street),
			City:       strings.TrimSpace(params.City),
			PostalCode: strings.TrimSpace(params.PostalCode),
			Country:    params.Country,
		},
		CreatedAt: now,
	}
	if params.Phone != "" {
		p.Phone, _ = validation.NormalizePhone(params.Phone)
	}
	if params.Email != "" {
		email, err := validation.NormalizeEmail(params.Email)
		if err != nil {
			return nil, invalid("%v", err)
		}
		p.Email = email
	}

	err := uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		b, err := uc.bookings.GetByID(txCtx, params.BookingID)
		if err != nil {
			return err
		}
		if b.Status == booking.StatusCancelled {
			return ErrBookingCancelled
		}

		registered, err := uc.pilgrims.ListByBooking(txCtx, b.ID)
		if err != nil {
			return err
		}
		if len(registered) >= b.Guests {
			return ErrBookingFull
		}

		if err := uc.pilgrims.Create(txCtx, p); err != nil {
			return err
		}

		payload, err := json.Marshal(event.TravelerReportRequested{BookingID: b.ID, PilgrimID: p.ID})
		if err != nil {
			return fmt.Errorf("marshal report request: %w", err)
		}

		return uc.outboxRepo.Create(txCtx, &outbox.Event{
			ID:            uuid.New().String(),
			EventType:     event.TypeTravelerReportRequested,
			Payload:       payload,
			Status:        outbox.StatusNew,
			CorrelationID: b.ID,
			Producer:      producerName,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("register pilgrim: %w", err)
	}

	return p, nil
}
