package service

import (
	"context"
	"strconv"
	"time"

	"github.com/patwikx/twc-platform/internal/domain"
	"github.com/patwikx/twc-platform/internal/repository"
	"github.com/patwikx/twc-platform/pkg/config"
	"github.com/patwikx/twc-platform/pkg/events"
	"github.com/patwikx/twc-platform/pkg/logger"
)

// Sweeper expires bookings that were never paid: pending and unpaid
// past the configured age become cancelled/expired. Sweeps are
// idempotent, so overlapping runs and restarts are harmless.
type Sweeper struct {
	bookingRepo repository.BookingRepository
	audit       AuditService
	eventBus    events.EventBus
	interval    time.Duration
	maxAge      time.Duration
	batchSize   int
	now         func() time.Time
}

func NewSweeper(bookingRepo repository.BookingRepository, audit AuditService, eventBus events.EventBus, cfg config.SweeperConfig) *Sweeper {
	return &Sweeper{
		bookingRepo: bookingRepo,
		audit:       audit,
		eventBus:    eventBus,
		interval:    cfg.Interval,
		maxAge:      cfg.MaxAge,
		batchSize:   cfg.BatchSize,
		now:         time.Now,
	}
}

// Run sweeps once immediately, then on every tick until the context
// ends.
func (s *Sweeper) Run(ctx context.Context) {
	logger.Info("Expiration sweeper started", "interval", s.interval, "max_age", s.maxAge)

	if _, err := s.SweepOnce(ctx); err != nil {
		logger.ErrorContext(ctx, "Expiration sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				logger.ErrorContext(ctx, "Expiration sweep failed", "error", err)
			}
		case <-ctx.Done():
			logger.Info("Expiration sweeper stopped")
			return
		}
	}
}

// SweepOnce expires one batch and reports how many bookings it
// cancelled.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.maxAge)

	expired, err := s.bookingRepo.ExpireStale(ctx, cutoff, s.batchSize)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	for _, b := range expired {
		if err := s.audit.LogAction(ctx, &domain.AuditLogEntry{
			Action:     domain.AuditUpdate,
			EntityType: "booking",
			EntityID:   strconv.FormatInt(b.ID, 10),
			OldValues:  map[string]any{"status": string(domain.BookingPending), "payment_status": string(domain.PaymentUnpaid)},
			NewValues:  map[string]any{"status": string(b.Status), "payment_status": string(b.Payment)},
		}); err != nil {
			logger.ErrorContext(ctx, "Failed to audit booking expiry", "error", err, "booking_id", b.ID)
		}

		event := events.BookingExpiredEvent{
			BookingID:  b.ID,
			ShortRef:   b.ShortRef,
			GuestEmail: b.GuestEmail,
			ExpiredAt:  s.now(),
		}
		if err := s.eventBus.Publish(ctx, events.BookingExpired, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish booking expired event", "error", err, "booking_id", b.ID)
		}
	}

	logger.InfoContext(ctx, "Expired stale bookings", "count", len(expired))
	return len(expired), nil
}
