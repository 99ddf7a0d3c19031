package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/patwikx/twc-platform/internal/handlers"
	"github.com/patwikx/twc-platform/internal/mailer"
	"github.com/patwikx/twc-platform/internal/notify"
	"github.com/patwikx/twc-platform/internal/ratelimit"
	"github.com/patwikx/twc-platform/internal/repository"
	"github.com/patwikx/twc-platform/internal/service"
	"github.com/patwikx/twc-platform/pkg/config"
	"github.com/patwikx/twc-platform/pkg/database"
	"github.com/patwikx/twc-platform/pkg/events"
	"github.com/patwikx/twc-platform/pkg/logger"
	mw "github.com/patwikx/twc-platform/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Rate limit store. The memory store's periodic sweep runs as a
	// task owned here, so its lifecycle ends with the process.
	var rlStore ratelimit.Store
	if cfg.RateLimit.Store == "redis" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("Invalid redis URL", "error", err)
			os.Exit(1)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		if cfg.Redis.DB != 0 {
			opts.DB = cfg.Redis.DB
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		rlStore = ratelimit.NewRedisStore(rdb, "twc")
	} else {
		memStore := ratelimit.NewMemoryStore()
		go sweepRateLimitKeys(ctx, memStore, cfg.RateLimit)
		rlStore = memStore
	}

	bookingLimiter := ratelimit.New(rlStore, "booking", cfg.RateLimit.BookingLimit, cfg.RateLimit.BookingWindow)
	mutationLimiter := ratelimit.New(rlStore, "mutation", cfg.RateLimit.MutationLimit, cfg.RateLimit.MutationWindow)

	// Initialize repositories
	bookingRepo := repository.NewBookingRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	roomRepo := repository.NewRoomRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	availabilityStore := repository.NewAvailabilityStore(pool)

	// Initialize services
	auditService := service.NewAuditService(auditRepo)
	capacityService := service.NewCapacityService(roomRepo)
	availabilityService := service.NewAvailabilityService(availabilityStore, roomRepo)
	bookingService := service.NewBookingService(bookingRepo, tokenRepo, capacityService, availabilityService, auditService, eventBus, cfg)
	authService := service.NewAuthService(userRepo, cfg)
	sweeper := service.NewSweeper(bookingRepo, auditService, eventBus, cfg.Sweeper)

	// Guest emails ride the event bus
	notifier := notify.NewNotifier(eventBus, newMailer(cfg), cfg.Server.PublicBaseURL)
	if err := notifier.Start(); err != nil {
		logger.Error("Failed to start notifier", "error", err)
		os.Exit(1)
	}

	go sweeper.Run(ctx)

	// Initialize handlers
	h := handlers.New(bookingService, availabilityService, auditService, authService, sweeper, roomRepo, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	r.Mount("/api", h.Routes(
		ratelimit.Middleware(bookingLimiter, ratelimit.IPKeyFunc),
		ratelimit.Middleware(mutationLimiter, ratelimit.IPKeyFunc),
	))

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("API server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting API server", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("API server error", "error", err)
		os.Exit(1)
	}
}

// newMailer picks the delivery backend: log-only in dev, MailerSend
// when an API key is present, plain SMTP otherwise.
func newMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}
}

// sweepRateLimitKeys periodically drops identifiers whose whole window
// has aged out, keeping the in-memory store bounded.
func sweepRateLimitKeys(ctx context.Context, store *ratelimit.MemoryStore, cfg config.RateLimitConfig) {
	window := cfg.BookingWindow
	if cfg.MutationWindow > window {
		window = cfg.MutationWindow
	}

	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if removed := store.Sweep(now, window); removed > 0 {
				logger.Debug("Swept rate limit keys", "removed", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}
