package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/pilgrim"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PilgrimRepository struct {
	pool *pgxpool.Pool
}

func NewPilgrimRepository(pool *pgxpool.Pool) *PilgrimRepository {
	return &PilgrimRepository{pool: pool}
}

const pilgrimColumns = `
	id, booking_id, first_name, last_name_1, COALESCE(last_name_2, ''),
	document_type, document_number, COALESCE(document_support, ''), issue_date,
	nationality, birth_date, gender, COALESCE(phone, ''), COALESCE(email, ''),
	street, city, postal_code, country, created_at
`

func (r *PilgrimRepository) Create(ctx context.Context, p *pilgrim.Pilgrim) error {
	const sql = `
		INSERT INTO pilgrims (
			id, booking_id, first_name, last_name_1, last_name_2,
			document_type, document_number, document_support, issue_date,
			nationality, birth_date, gender, phone, email,
			street, city, postal_code, country, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := conn(ctx, r.pool).Exec(ctx, sql,
		p.ID, p.BookingID, p.FirstName, p.LastName1, nullIfEmpty(p.LastName2),
		p.DocumentType, p.DocumentNumber, nullIfEmpty(p.DocumentSupport), p.IssueDate,
		p.Nationality, p.BirthDate, p.Gender, nullIfEmpty(p.Phone), nullIfEmpty(p.Email),
		p.Address.Street, p.Address.City, p.Address.PostalCode, p.Address.Country, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pilgrim: %w", err)
	}

	return nil
}

func (r *PilgrimRepository) GetByID(ctx context.Context, id string) (*pilgrim.Pilgrim, error) {
	if !isUUID(id) {
		return nil, pilgrim.ErrNotFound
	}

	sql := `SELECT ` + pilgrimColumns + ` FROM pilgrims WHERE id = $1`

	p, err := scanPilgrim(conn(ctx, r.pool).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pilgrim.ErrNotFound
		}
		return nil, fmt.Errorf("get pilgrim by id: %w", err)
	}
	return p, nil
}

func (r *PilgrimRepository) ListByBooking(ctx context.Context, bookingID string) ([]*pilgrim.Pilgrim, error) {
	sql := `SELECT ` + pilgrimColumns + ` FROM pilgrims WHERE booking_id = $1 ORDER BY created_at ASC`

	rows, err := conn(ctx, r.pool).Query(ctx, sql, bookingID)
	if err != nil {
		return nil, fmt.Errorf("query pilgrims: %w", err)
	}
	defer rows.Close()

	var pilgrims []*pilgrim.Pilgrim
	for rows.Next() {
		p, err := scanPilgrim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pilgrim: %w", err)
		}
		pilgrims = append(pilgrims, p)
	}
	return pilgrims, rows.Err()
}

func scanPilgrim(row pgx.Row) (*pilgrim.Pilgrim, error) {
	var p pilgrim.Pilgrim
	err := row.Scan(
		&p.ID, &p.BookingID, &p.FirstName, &p.LastName1, &p.LastName2,
		&p.DocumentType, &p.DocumentNumber, &p.DocumentSupport, &p.IssueDate,
		&p.Nationality, &p.BirthDate, &p.Gender, &p.Phone, &p.Email,
		&p.Address.Street, &p.Address.City, &p.Address.PostalCode, &p.Address.Country, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
