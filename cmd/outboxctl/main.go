package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/config"

	"github.com/jackc/pgx/v5"
)

func main() {
	requeue := flag.Bool("requeue", false, "reset events stuck in processing to new")
	retryFailed := flag.Bool("retry-failed", false, "reset failed events to new with zero attempts")
	limit := flag.Int("limit", 10, "number of recent rows to list")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, cfg.Postgres.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	if *requeue {
		tag, err := conn.Exec(ctx, "UPDATE outbox SET status = 'new', updated_at = NOW() WHERE status = 'processing'")
		if err != nil {
			fmt.Fprintf(os.Stderr, "requeue failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("requeued %d events\n", tag.RowsAffected())
	}
	if *retryFailed {
		tag, err := conn.Exec(ctx, "UPDATE outbox SET status = 'new', attempts = 0, updated_at = NOW() WHERE status = 'failed'")
		if err != nil {
			fmt.Fprintf(os.Stderr, "retry failed events: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("reset %d failed events\n", tag.RowsAffected())
	}

	if err := report(ctx, conn, *limit); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func report(ctx context.Context, conn *pgx.Conn, limit int) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "--- Outbox by status ---")
	rows, err := conn.Query(ctx, "SELECT status, COUNT(*) FROM outbox GROUP BY status ORDER BY status")
	if err != nil {
		return fmt.Errorf("count outbox: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return fmt.Errorf("scan outbox count: %w", err)
		}
		fmt.Fprintf(w, "%s\t%d\n", status, n)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n--- Recent outbox events ---")
	rows, err = conn.Query(ctx,
		"SELECT id, event_type, status, attempts, updated_at FROM outbox ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return fmt.Errorf("list outbox: %w", err)
	}
	for rows.Next() {
		var id, eventType, status string
		var attempts int
		var updatedAt time.Time
		if err := rows.Scan(&id, &eventType, &status, &attempts, &updatedAt); err != nil {
			return fmt.Errorf("scan outbox event: %w", err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", id, eventType, status, attempts, updatedAt.Format(time.RFC3339))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n--- Recent bookings ---")
	rows, err = conn.Query(ctx,
		"SELECT id::text, status, payment_status, check_in FROM bookings ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}
	for rows.Next() {
		var id, status, payment string
		var checkIn time.Time
		if err := rows.Scan(&id, &status, &payment, &checkIn); err != nil {
			return fmt.Errorf("scan booking: %w", err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, status, payment, checkIn.Format(time.DateOnly))
	}
	return rows.Err()
}
