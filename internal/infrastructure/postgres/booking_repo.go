package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `
	id, guest_name, guest_email, guest_phone, room_type, COALESCE(bed_id::text, ''),
	check_in, check_out, guests, total_price, status, payment_status,
	created_at, updated_at
`

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	const sql = `
		INSERT INTO bookings (
			id, guest_name, guest_email, guest_phone, room_type, bed_id,
			check_in, check_out, guests, total_price, status, payment_status,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := conn(ctx, r.pool).Exec(ctx, sql,
		b.ID, b.GuestName, b.GuestEmail, b.GuestPhone, b.RoomType, nullIfEmpty(b.BedID),
		b.CheckIn, b.CheckOut, b.Guests, b.TotalPrice, b.Status, b.PaymentStatus,
		b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	return nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status booking.Status, payment booking.PaymentStatus) error {
	if !isUUID(id) {
		return booking.ErrNotFound
	}

	const sql = `
		UPDATE bookings
		SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1
	`

	cmdTag, err := conn(ctx, r.pool).Exec(ctx, sql, id, status, payment)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}

	return nil
}

// GetByID reads a booking. Inside a transaction the row is locked for update.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	if !isUUID(id) {
		return nil, booking.ErrNotFound
	}

	sql := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if GetTx(ctx) != nil {
		sql += ` FOR UPDATE`
	}

	b, err := scanBooking(conn(ctx, r.pool).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return b, nil
}

func (r *BookingRepository) List(ctx context.Context, f booking.Filter) ([]*booking.Booking, error) {
	const sql = `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ($1 = '' OR status = $1)
		  AND ($2::timestamptz IS NULL OR check_out > $2)
		  AND ($3::timestamptz IS NULL OR check_in < $3)
		ORDER BY check_in DESC, created_at DESC
		LIMIT $4 OFFSET $5
	`

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, sql, string(f.Status), nullTime(f.From), nullTime(f.To), limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

func (r *BookingRepository) Totals(ctx context.Context, day time.Time) (*booking.Totals, error) {
	const byStatusSQL = `SELECT status, COUNT(*) FROM bookings GROUP BY status`
	const figuresSQL = `
		SELECT
			COALESCE(SUM(total_price) FILTER (WHERE payment_status = 'paid'), 0),
			COUNT(DISTINCT bed_id) FILTER (WHERE status <> 'cancelled' AND check_in::date <= $1::date AND check_out::date > $1::date),
			COUNT(*) FILTER (WHERE status <> 'cancelled' AND check_in::date = $1::date)
		FROM bookings
	`

	totals := &booking.Totals{ByStatus: map[booking.Status]int{
		booking.StatusPending:   0,
		booking.StatusConfirmed: 0,
		booking.StatusCancelled: 0,
	}}

	rows, err := r.pool.Query(ctx, byStatusSQL)
	if err != nil {
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		totals.ByStatus[booking.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx, figuresSQL, day).Scan(&totals.Revenue, &totals.OccupiedBeds, &totals.ArrivalsToday)
	if err != nil {
		return nil, fmt.Errorf("booking figures: %w", err)
	}

	return totals, nil
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var b booking.Booking
	err := row.Scan(
		&b.ID, &b.GuestName, &b.GuestEmail, &b.GuestPhone, &b.RoomType, &b.BedID,
		&b.CheckIn, &b.CheckOut, &b.Guests, &b.TotalPrice, &b.Status, &b.PaymentStatus,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
