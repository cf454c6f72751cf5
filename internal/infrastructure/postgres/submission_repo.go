package postgres

import (
	"context"
	"fmt"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/submission"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SubmissionRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Save upserts by id: the pending row written when the report is claimed is
// later moved to its final status. event_id is unique, one report per event.
func (r *SubmissionRepository) Save(ctx context.Context, s *submission.Submission) error {
	const sql = `
		INSERT INTO traveler_report_submissions (
			id, event_id, booking_id, pilgrim_id, status, attempts, response_code, reference, last_error, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			attempts = traveler_report_submissions.attempts + EXCLUDED.attempts,
			response_code = EXCLUDED.response_code,
			reference = EXCLUDED.reference,
			last_error = EXCLUDED.last_error,
			updated_at = NOW()
	`

	var code any
	if s.ResponseCode != 0 {
		code = s.ResponseCode
	}

	_, err := conn(ctx, r.pool).Exec(ctx, sql,
		s.ID, nullIfEmpty(s.EventID), s.BookingID, nullIfEmpty(s.PilgrimID), s.Status, s.Attempts, code,
		nullIfEmpty(s.Reference), nullIfEmpty(s.LastError), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) ListByBooking(ctx context.Context, bookingID string) ([]*submission.Submission, error) {
	const sql = `
		SELECT id, COALESCE(event_id, ''), booking_id, COALESCE(pilgrim_id::text, ''), status, attempts,
		       COALESCE(response_code, 0), COALESCE(reference, ''), COALESCE(last_error, ''),
		       created_at, updated_at
		FROM traveler_report_submissions
		WHERE booking_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, sql, bookingID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var subs []*submission.Submission
	for rows.Next() {
		s := &submission.Submission{}
		if err := rows.Scan(&s.ID, &s.EventID, &s.BookingID, &s.PilgrimID, &s.Status, &s.Attempts,
			&s.ResponseCode, &s.Reference, &s.LastError, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// CountByStatus feeds the dashboard's reporting panel.
func (r *SubmissionRepository) CountByStatus(ctx context.Context) (map[submission.Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM traveler_report_submissions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	defer rows.Close()

	counts := map[submission.Status]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan submission count: %w", err)
		}
		counts[submission.Status(status)] = n
	}
	return counts, rows.Err()
}
