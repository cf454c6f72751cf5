package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/api"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/api/middleware"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/application/factories/infrastructure"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/auth"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/config"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/registration"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/postgres"
	redisInfra "github.com/guillermolam/alberguecarcalejo-sub002/internal/infrastructure/redis"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/ratelimit"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/usecase"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize structured JSON logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Auth.Validate(); err != nil {
		logger.Error("invalid auth config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	infraFactory := infrastructure.NewFactory(cfg, logger)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	redisClient, err := infraFactory.Redis(ctx)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	// Repositories
	bookingRepo := postgres.NewBookingRepository(pgPool)
	roomRepo := postgres.NewRoomRepository(pgPool)
	pilgrimRepo := postgres.NewPilgrimRepository(pgPool)
	reviewRepo := postgres.NewReviewRepository(pgPool)
	submissionRepo := postgres.NewSubmissionRepository(pgPool)
	outboxRepo := postgres.NewOutboxRepository(pgPool)
	inboxRepo := postgres.NewInboxRepository(pgPool)
	txManager := postgres.NewTxManager(pgPool)
	cache := redisInfra.NewCache(redisClient)

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.App.Name)
	if cfg.Auth.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH is not set, admin login is disabled")
	}

	// UseCases
	handlers := api.NewHandlers(api.Deps{
		CreateBooking:   usecase.NewCreateBooking(txManager, bookingRepo, roomRepo, outboxRepo, cfg.Albergue.MaxNights, cfg.Albergue.MaxGuests),
		GetBooking:      usecase.NewGetBooking(cache, bookingRepo),
		ListBookings:    usecase.NewListBookings(bookingRepo),
		UpdateStatus:    usecase.NewUpdateBookingStatus(txManager, bookingRepo, outboxRepo, cache),
		BookingTimeline: usecase.NewGetBookingTimeline(bookingRepo, pilgrimRepo, outboxRepo, inboxRepo, submissionRepo),
		RegisterPilgrim: usecase.NewRegisterPilgrim(txManager, bookingRepo, pilgrimRepo, outboxRepo),
		DashboardStats:  usecase.NewDashboardStats(cache, bookingRepo, roomRepo, submissionRepo),
		ListReviews:     usecase.NewListReviews(reviewRepo),
		CreateReview:    usecase.NewCreateReview(reviewRepo),
		ListRooms:       usecase.NewListRooms(roomRepo),
		Login:           usecase.NewLogin(issuer, cfg.Auth.AdminUsername, cfg.Auth.AdminPasswordHash),
		Rules: registration.Rules{
			MaxNights: cfg.Albergue.MaxNights,
			MaxGuests: cfg.Albergue.MaxGuests,
		},
	})

	limitCfg := ratelimit.Config{Requests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window}
	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		limiter = ratelimit.NewRedis(redisClient, limitCfg)
	default:
		mem := ratelimit.NewMemory(limitCfg)
		go mem.Run(ctx, cfg.RateLimit.CleanupInterval, logger)
		limiter = mem
	}

	apiHandler := api.NewRouter(handlers, api.RouterOptions{
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Limiter:     limiter,
		Idempotency: middleware.NewRedisIdempotencyStore(redisClient),
		Issuer:      issuer,
		Checks: map[string]api.HealthCheck{
			"postgres": pgPool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
		Logger:     logger,
		TrustProxy: cfg.HTTP.TrustProxy,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           apiHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.HTTP.Port, "rate_limit_backend", cfg.RateLimit.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exiting")
}
