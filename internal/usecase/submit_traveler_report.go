package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/event"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/inbox"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/pilgrim"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/submission"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/postgres"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/travelerreport"

	"github.com/google/uuid"
)

const reporterConsumer = "traveler-reporter"

type ReportSubmitter interface {
	Submit(ctx context.Context, payload []byte) (*travelerreport.Receipt, error)
}

type SubmitTravelerReport struct {
	txManager         postgres.Transactor
	inboxRepo         InboxStore
	bookings          BookingStore
	pilgrims          PilgrimStore
	submissions       SubmissionStore
	client            ReportSubmitter
	establishmentCode string
	logger            *slog.Logger
	now               func() time.Time
}

func NewSubmitTravelerReport(
	txManager postgres.Transactor,
	inboxRepo InboxStore,
	bookings BookingStore,
	pilgrims PilgrimStore,
	submissions SubmissionStore,
	client ReportSubmitter,
	establishmentCode string,
	logger *slog.Logger,
) *SubmitTravelerReport {
	return &SubmitTravelerReport{
		txManager:         txManager,
		inboxRepo:         inboxRepo,
		bookings:          bookings,
		pilgrims:          pilgrims,
		submissions:       submissions,
		client:            client,
		establishmentCode: establishmentCode,
		logger:            logger,
		now:               time.Now,
	}
}

// Execute handles one TravelerReportRequested message in three steps: claim the
// event and store a pending submission, POST outside any transaction, then record
// the outcome. A redelivered event is absorbed by the inbox claim, so the
// endpoint sees at most one POST per event even when recording fails.
//
// A delivery rejected by the government endpoint is stored as failed and is not
// returned as an error: the client already retried.
func (uc *SubmitTravelerReport) Execute(ctx context.Context, msg event.Message) (*submission.Submission, error) {
	var req event.TravelerReportRequested
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return nil, fmt.Errorf("decode report request: %w", err)
	}

	sub, payload, err := uc.claim(ctx, msg, req)
	if err != nil {
		return nil, fmt.Errorf("submit traveler report: %w", err)
	}
	if sub == nil {
		return nil, nil
	}

	uc.deliver(ctx, sub, payload)

	if err := uc.submissions.Save(ctx, sub); err != nil {
		uc.logger.Error("traveler report outcome not recorded", "event_id", msg.ID, "submission_id", sub.ID,
			"status", sub.Status, "error", err)
		return nil, fmt.Errorf("record traveler report: %w", err)
	}

	return sub, nil
}

// claim marks the event in the inbox and stores a pending submission in one
// short transaction. It returns a nil submission for an event seen before.
func (uc *SubmitTravelerReport) claim(ctx context.Context, msg event.Message, req event.TravelerReportRequested) (*submission.Submission, []byte, error) {
	var (
		sub     *submission.Submission
		payload []byte
	)

	err := uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		sub, payload = nil, nil

		claimed, err := uc.inboxRepo.Claim(txCtx, &inbox.Event{
			Consumer:      reporterConsumer,
			EventID:       msg.ID,
			EventType:     msg.Type,
			CorrelationID: req.BookingID,
		})
		if err != nil {
			return err
		}
		if !claimed {
			uc.logger.Info("traveler report already claimed", "event_id", msg.ID, "booking_id", req.BookingID)
			return nil
		}

		b, err := uc.bookings.GetByID(txCtx, req.BookingID)
		if err != nil {
			return err
		}
		p, err := uc.pilgrims.GetByID(txCtx, req.PilgrimID)
		if err != nil {
			return err
		}

		now := uc.now()
		body, err := travelerreport.Build(travelerreport.Report{
			EstablishmentCode: uc.establishmentCode,
			Contracts:         []travelerreport.Contract{{Booking: b, Pilgrims: []*pilgrim.Pilgrim{p}}},
			GeneratedAt:       now,
		})
		if err != nil {
			return fmt.Errorf("build traveler report: %w", err)
		}

		pending := &submission.Submission{
			ID:        uuid.New().String(),
			EventID:   msg.ID,
			BookingID: b.ID,
			PilgrimID: p.ID,
			Status:    submission.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := uc.submissions.Save(txCtx, pending); err != nil {
			return err
		}

		sub, payload = pending, body
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return sub, payload, nil
}

func (uc *SubmitTravelerReport) deliver(ctx context.Context, sub *submission.Submission, payload []byte) {
	receipt, err := uc.client.Submit(ctx, payload)
	sub.UpdatedAt = uc.now()
	if err != nil {
		sub.Status = submission.StatusFailed
		sub.LastError = err.Error()

		var submitErr *travelerreport.SubmitError
		if errors.As(err, &submitErr) {
			sub.Attempts = submitErr.Attempts
		}
		var statusErr *travelerreport.StatusError
		if errors.As(err, &statusErr) {
			sub.ResponseCode = statusErr.StatusCode
		}

		uc.logger.Error("traveler report rejected", "booking_id", sub.BookingID, "pilgrim_id", sub.PilgrimID,
			"attempts", sub.Attempts, "error", err)
		return
	}

	sub.Status = submission.StatusSent
	sub.Attempts = receipt.Attempts
	sub.ResponseCode = receipt.StatusCode
	sub.Reference = receipt.Reference
	uc.logger.Info("traveler report sent", "booking_id", sub.BookingID, "pilgrim_id", sub.PilgrimID, "reference", receipt.Reference)
}
