package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/room"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// FreeBed is a bed that can be booked together with the nightly price of its room.
type FreeBed struct {
	BedID         string
	RoomID        string
	PricePerNight float64
}

// FindFreeBed picks the first bed of the given room type with no overlapping active
// booking and enough room capacity. Inside a transaction the bed row stays locked,
// concurrent callers skip it.
func (r *RoomRepository) FindFreeBed(ctx context.Context, roomType booking.RoomType, checkIn, checkOut time.Time, guests int) (*FreeBed, error) {
	const sql = `
		SELECT b.id, r.id, r.price_per_night
		FROM beds b
		JOIN rooms r ON r.id = b.room_id
		WHERE r.type = $1
		  AND r.capacity >= $4
		  AND b.active
		  AND NOT EXISTS (
			SELECT 1 FROM bookings bk
			WHERE bk.bed_id = b.id
			  AND bk.status <> 'cancelled'
			  AND bk.check_in < $3
			  AND bk.check_out > $2
		  )
		ORDER BY r.name, b.number
		LIMIT 1
		FOR UPDATE OF b SKIP LOCKED
	`

	var fb FreeBed
	err := conn(ctx, r.pool).QueryRow(ctx, sql, roomType, checkIn, checkOut, guests).
		Scan(&fb.BedID, &fb.RoomID, &fb.PricePerNight)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, room.ErrNoBedAvailable
		}
		return nil, fmt.Errorf("find free bed: %w", err)
	}

	return &fb, nil
}

// List returns every room with its beds, marking beds free on the night starting at day.
func (r *RoomRepository) List(ctx context.Context, day time.Time) ([]*room.Room, error) {
	const sql = `
		SELECT r.id, r.name, r.type, r.capacity, r.price_per_night,
		       b.id, b.number,
		       NOT EXISTS (
				SELECT 1 FROM bookings bk
				WHERE bk.bed_id = b.id
				  AND bk.status <> 'cancelled'
				  AND bk.check_in::date <= $1::date
				  AND bk.check_out::date > $1::date
		       )
		FROM rooms r
		JOIN beds b ON b.room_id = r.id AND b.active
		ORDER BY r.name, b.number
	`

	rows, err := r.pool.Query(ctx, sql, day)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*room.Room
	byID := make(map[string]*room.Room)
	for rows.Next() {
		var rm room.Room
		var bed room.Bed
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.Type, &rm.Capacity, &rm.PricePerNight, &bed.ID, &bed.Number, &bed.Available); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		existing, ok := byID[rm.ID]
		if !ok {
			existing = &rm
			byID[rm.ID] = existing
			rooms = append(rooms, existing)
		}
		bed.RoomID = rm.ID
		existing.Beds = append(existing.Beds, bed)
	}

	return rooms, rows.Err()
}

func (r *RoomRepository) TotalBeds(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM beds WHERE active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count beds: %w", err)
	}
	return n, nil
}
