package postgres

import (
	"context"
	"fmt"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/review"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	const sql = `
		INSERT INTO reviews (id, author, country, rating, text, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, sql, rv.ID, rv.Author, nullIfEmpty(rv.Country), rv.Rating, rv.Text,
		nullIfEmptyDefault(rv.Source, "direct"), rv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// List returns the newest reviews first.
func (r *ReviewRepository) List(ctx context.Context, limit int) ([]*review.Review, error) {
	const sql = `
		SELECT id, author, COALESCE(country, ''), rating, text, COALESCE(source, 'direct'), created_at
		FROM reviews
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*review.Review
	for rows.Next() {
		rv := &review.Review{}
		if err := rows.Scan(&rv.ID, &rv.Author, &rv.Country, &rv.Rating, &rv.Text, &rv.Source, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
