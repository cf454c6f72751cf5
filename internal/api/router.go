package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/api/middleware"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/auth"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/ratelimit"

	"github.com/go-chi/chi/v5"
	ChiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterOptions struct {
	Service     string
	Version     string
	Limiter     ratelimit.Limiter
	Idempotency middleware.IdempotencyStore
	Issuer      *auth.Issuer
	Checks      map[string]HealthCheck
	Logger      *slog.Logger
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable it only behind a proxy that overwrites those headers.
	TrustProxy bool
}

func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(ChiMiddleware.RequestID)
	if opts.TrustProxy {
		r.Use(ChiMiddleware.RealIP)
	}
	r.Use(ChiMiddleware.Logger)
	r.Use(ChiMiddleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "no route for "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", r.Method+" is not supported on "+r.URL.Path)
	})

	limit := func(group string) func(http.Handler) http.Handler {
		return middleware.RateLimit(opts.Limiter, group, opts.Logger)
	}
	admin := middleware.Authenticate(opts.Issuer, auth.RoleAdmin)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health(opts))

		r.With(limit("validate")).Post("/validate/document", h.ValidateDocument)
		r.With(limit("ocr")).Post("/ocr/mrz", h.ScanDocument)
		r.Post("/registration/validate-step", h.ValidateRegistrationStep)

		r.Get("/reviews/all", h.ListReviews)
		r.With(limit("reviews")).Post("/reviews", h.CreateReview)

		r.Get("/rooms", h.ListRooms)

		r.With(limit("bookings"), middleware.Idempotency(opts.Idempotency, opts.Logger)).Post("/bookings", h.CreateBooking)
		r.Get("/bookings/{id}", h.GetBooking)
		r.Get("/bookings/{id}/qr", h.BookingQR)
		r.With(limit("registration")).Post("/bookings/{id}/pilgrims", h.RegisterPilgrim)

		r.With(limit("auth")).Post("/auth/login", h.Login)
		r.With(middleware.Authenticate(opts.Issuer)).Get("/auth/me", h.Me)

		r.Route("/admin", func(r chi.Router) {
			r.Use(admin)
			r.Get("/bookings", h.ListBookings)
			r.Patch("/bookings/{id}/status", h.UpdateBookingStatus)
			r.Get("/bookings/{id}/events", h.BookingTimeline)
		})
	})

	r.With(admin).Get("/booking/dashboard/stats", h.DashboardStats)

	return r
}

func health(opts RouterOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		checks := make(map[string]string, len(opts.Checks))
		for name, check := range opts.Checks {
			if err := check(ctx); err != nil {
				checks[name] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		writeJSON(w, code, map[string]any{
			"status":  status,
			"service": opts.Service,
			"version": opts.Version,
			"checks":  checks,
			"time":    time.Now().UTC(),
		})
	}
}
