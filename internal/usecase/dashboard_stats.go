package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/submission"
)

const dashboardCacheTTL = 30 * time.Second

type DashboardStatsDTO struct {
	TotalBookings   int                       `json:"total_bookings"`
	ByStatus        map[booking.Status]int    `json:"by_status"`
	Revenue         float64                   `json:"revenue"`
	OccupiedBeds    int                       `json:"occupied_beds"`
	TotalBeds       int                       `json:"total_beds"`
	OccupancyRate   float64                   `json:"occupancy_rate"`
	ArrivalsToday   int                       `json:"arrivals_today"`
	PendingReports  int                       `json:"pending_reports"`
	FailedReports   int                       `json:"failed_reports"`
	ReportsByStatus map[submission.Status]int `json:"reports_by_status"`
	GeneratedAt     time.Time                 `json:"generated_at"`
}

type DashboardStats struct {
	cache       Cache
	bookings    BookingStore
	rooms       RoomStore
	submissions SubmissionStore
	now         func() time.Time
}

func NewDashboardStats(cache Cache, bookings BookingStore, rooms RoomStore, submissions SubmissionStore) *DashboardStats {
	return &DashboardStats{
		cache:       cache,
		bookings:    bookings,
		rooms:       rooms,
		submissions: submissions,
		now:         time.Now,
	}
}

func (uc *DashboardStats) Execute(ctx context.Context) (*DashboardStatsDTO, error) {
	var cached DashboardStatsDTO
	if hit, err := uc.cache.Get(ctx, dashboardCacheKey, &cached); err != nil {
		slog.WarnContext(ctx, "dashboard cache read failed", "error", err)
	} else if hit {
		return &cached, nil
	}

	now := uc.now()
	totals, err := uc.bookings.Totals(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("booking totals: %w", err)
	}

	beds, err := uc.rooms.TotalBeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("total beds: %w", err)
	}

	reports, err := uc.submissions.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("report counts: %w", err)
	}

	stats := &DashboardStatsDTO{
		ByStatus:        totals.ByStatus,
		Revenue:         totals.Revenue,
		OccupiedBeds:    totals.OccupiedBeds,
		TotalBeds:       beds,
		ArrivalsToday:   totals.ArrivalsToday,
		PendingReports:  reports[submission.StatusPending],
		FailedReports:   reports[submission.StatusFailed],
		ReportsByStatus: reports,
		GeneratedAt:     now.UTC(),
	}
	for _, n := range totals.ByStatus {
		stats.TotalBookings += n
	}
	if beds > 0 {
		stats.OccupancyRate = math.Round(float64(totals.OccupiedBeds)/float64(beds)*1000) / 10
	}

	if err := uc.cache.Set(ctx, dashboardCacheKey, stats, dashboardCacheTTL); err != nil {
		slog.WarnContext(ctx, "dashboard cache write failed", "error", err)
	}

	return stats, nil
}
