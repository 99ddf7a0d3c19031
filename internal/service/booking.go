package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patwikx/twc-platform/internal/domain"
	"github.com/patwikx/twc-platform/internal/repository"
	"github.com/patwikx/twc-platform/pkg/config"
	"github.com/patwikx/twc-platform/pkg/events"
	"github.com/patwikx/twc-platform/pkg/logger"
)

const shortRefAttempts = 3

type BookingService interface {
	CreateBooking(ctx context.Context, req *domain.CreateBookingRequest) (*domain.BookingConfirmation, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	GetBookingByRef(ctx context.Context, shortRef, email string) (*domain.Booking, error)
	GetBookingWithToken(ctx context.Context, rawToken string) (*domain.Booking, error)
	ListBookings(ctx context.Context, filter repository.ListBookingsFilter) ([]domain.Booking, error)
	ConfirmPayment(ctx context.Context, bookingID int64, provider, providerRef string, amount float64) (*domain.Booking, error)
	CancelWithToken(ctx context.Context, rawToken string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id int64, userID int64) (*domain.Booking, error)
	CheckInBooking(ctx context.Context, id int64, userID int64) (*domain.Booking, error)
}

type bookingService struct {
	bookingRepo  repository.BookingRepository
	tokenRepo    repository.TokenRepository
	capacity     CapacityService
	availability AvailabilityService
	audit        AuditService
	eventBus     events.EventBus
	config       *config.Config
	now          func() time.Time
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	tokenRepo repository.TokenRepository,
	capacity CapacityService,
	availability AvailabilityService,
	audit AuditService,
	eventBus events.EventBus,
	config *config.Config,
) BookingService {
	return &bookingService{
		bookingRepo:  bookingRepo,
		tokenRepo:    tokenRepo,
		capacity:     capacity,
		availability: availability,
		audit:        audit,
		eventBus:     eventBus,
		config:       config,
		now:          time.Now,
	}
}

// CreateBooking runs the whole reservation: validate the cart, check
// capacity, pre-check availability, price the stay, then persist
// atomically with an in-transaction re-check. Side effects after the
// commit (audit, events, mail) are best-effort and never unwind the
// booking.
func (s *bookingService) CreateBooking(ctx context.Context, req *domain.CreateBookingRequest) (*domain.BookingConfirmation, error) {
	// Validate guest details
	req.Guest.Normalize()
	if err := req.Guest.Validate(); err != nil {
		return nil, domain.NewValidationError("%v", err)
	}

	// Capacity validation reports every oversized item at once
	types, violations, err := s.capacity.Validate(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, domain.NewValidationError("some rooms cannot accommodate the requested guests").
			WithDetails(map[string]any{"violations": violations})
	}

	// Build priced items; stay boundaries are calendar days
	items := make([]domain.BookingItem, len(req.Items))
	for i, ci := range req.Items {
		rt := types[ci.RoomTypeID]
		items[i] = domain.BookingItem{
			RoomTypeID:    rt.ID,
			RoomTypeName:  rt.Name,
			CheckIn:       domain.ToDate(ci.CheckIn),
			CheckOut:      domain.ToDate(ci.CheckOut),
			Guests:        ci.Guests,
			PricePerNight: rt.PricePerNight,
		}
	}

	// Advisory availability pre-check
	unavailable, err := s.availability.PreCheck(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("availability pre-check failed: %w", err)
	}
	if len(unavailable) > 0 {
		return nil, domain.NewRoomUnavailable("selected rooms are not available for the chosen dates").
			WithDetails(map[string]any{"rooms": unavailable})
	}

	// Price the stay
	totals := domain.PriceItems(items)

	// Persist atomically; the transaction re-checks availability
	rawToken, tokenHash, err := domain.NewVerificationToken()
	if err != nil {
		return nil, err
	}
	tokenExpiresAt := s.now().Add(s.config.Booking.VerifyTokenTTL)
	propertyID := types[req.Items[0].RoomTypeID].PropertyID

	var booking *domain.Booking
	for attempt := 0; attempt < shortRefAttempts; attempt++ {
		shortRef, err := domain.NewShortRef(s.config.Booking.RefPrefix)
		if err != nil {
			return nil, err
		}

		b, conflict, err := s.bookingRepo.CreateAtomic(ctx, repository.CreateBookingParams{
			ShortRef:       shortRef,
			PropertyID:     propertyID,
			Guest:          req.Guest,
			Items:          items,
			Totals:         totals,
			TokenHash:      tokenHash,
			TokenExpiresAt: tokenExpiresAt,
		})
		if err == repository.ErrShortRefTaken {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create booking: %w", err)
		}
		if conflict != nil {
			return nil, domain.NewAvailabilityChanged(conflict.Rooms)
		}
		booking = b
		break
	}
	if booking == nil {
		return nil, fmt.Errorf("could not allocate a booking reference after %d attempts", shortRefAttempts)
	}

	// Best-effort side effects
	if err := s.audit.LogAction(ctx, &domain.AuditLogEntry{
		Action:     domain.AuditCreate,
		EntityType: "booking",
		EntityID:   strconv.FormatInt(booking.ID, 10),
		NewValues:  bookingSnapshot(booking),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to audit booking creation", "error", err, "booking_id", booking.ID)
	}

	event := events.BookingCreatedEvent{
		BookingID:         booking.ID,
		ShortRef:          booking.ShortRef,
		GuestName:         booking.GuestFirstName + " " + booking.GuestLastName,
		GuestEmail:        booking.GuestEmail,
		TotalAmount:       booking.TotalAmount,
		CheckIn:           items[0].CheckIn,
		CheckOut:          items[0].CheckOut,
		CreatedAt:         booking.CreatedAt,
		VerificationToken: rawToken,
		TokenExpiresAt:    tokenExpiresAt,
	}
	if err := s.eventBus.Publish(ctx, events.BookingCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking created event", "error", err, "booking_id", booking.ID)
	}

	return &domain.BookingConfirmation{
		Success:           true,
		BookingID:         booking.ID,
		ShortRef:          booking.ShortRef,
		TotalAmount:       booking.TotalAmount,
		VerificationToken: rawToken,
		TokenExpiresAt:    tokenExpiresAt,
	}, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if b == nil {
		return nil, domain.NewNotFound("booking")
	}
	return b, nil
}

// GetBookingByRef is the guest lookup: reference plus the email the
// booking was made under, so references alone leak nothing.
func (s *bookingService) GetBookingByRef(ctx context.Context, shortRef, email string) (*domain.Booking, error) {
	shortRef = strings.ToUpper(strings.TrimSpace(shortRef))
	email = strings.TrimSpace(email)
	if shortRef == "" || email == "" {
		return nil, domain.NewValidationError("booking reference and email are required")
	}

	b, err := s.bookingRepo.GetByShortRefAndEmail(ctx, shortRef, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if b == nil {
		return nil, domain.NewNotFound("booking")
	}
	return b, nil
}

func (s *bookingService) GetBookingWithToken(ctx context.Context, rawToken string) (*domain.Booking, error) {
	t, err := s.resolveToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	return s.GetBooking(ctx, t.BookingID)
}

func (s *bookingService) ListBookings(ctx context.Context, filter repository.ListBookingsFilter) ([]domain.Booking, error) {
	return s.bookingRepo.List(ctx, filter)
}

// ConfirmPayment applies a provider payment to the booking. Replays of
// the same provider reference and payments landing on expired or
// cancelled bookings change nothing and still return the booking.
func (s *bookingService) ConfirmPayment(ctx context.Context, bookingID int64, provider, providerRef string, amount float64) (*domain.Booking, error) {
	if amount <= 0 {
		return nil, domain.NewValidationError("payment amount must be positive")
	}
	if providerRef == "" {
		return nil, domain.NewValidationError("payment reference is required")
	}

	before, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if before == nil {
		return nil, domain.NewNotFound("booking")
	}

	after, applied, err := s.bookingRepo.RegisterPayment(ctx, bookingID, provider, providerRef, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to register payment: %w", err)
	}
	if after == nil {
		return nil, domain.NewNotFound("booking")
	}
	if !applied {
		logger.WarnContext(ctx, "Payment not applied",
			"booking_id", bookingID, "provider_ref", providerRef,
			"status", after.Status, "payment_status", after.Payment)
		return after, nil
	}

	s.auditUpdate(ctx, after.ID, bookingSnapshot(before), bookingSnapshot(after), nil)

	event := events.PaymentConfirmedEvent{
		BookingID:   after.ID,
		ShortRef:    after.ShortRef,
		GuestEmail:  after.GuestEmail,
		AmountPaid:  after.AmountPaid,
		ConfirmedAt: s.now(),
	}
	if err := s.eventBus.Publish(ctx, events.PaymentConfirmed, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish payment confirmed event", "error", err, "booking_id", after.ID)
	}

	return after, nil
}

// CancelWithToken lets a guest cancel through their verification
// token, no account required.
func (s *bookingService) CancelWithToken(ctx context.Context, rawToken string) (*domain.Booking, error) {
	t, err := s.resolveToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	booking, err := s.cancel(ctx, t.BookingID, nil)
	if err != nil {
		return nil, err
	}

	if err := s.tokenRepo.MarkUsed(ctx, t.ID); err != nil {
		logger.ErrorContext(ctx, "Failed to mark booking token used", "error", err, "token_id", t.ID)
	}
	return booking, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, id int64, userID int64) (*domain.Booking, error) {
	return s.cancel(ctx, id, &userID)
}

func (s *bookingService) cancel(ctx context.Context, id int64, userID *int64) (*domain.Booking, error) {
	before, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if before == nil {
		return nil, domain.NewNotFound("booking")
	}

	ok, err := s.bookingRepo.Cancel(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	if !ok {
		return nil, domain.NewValidationError("booking can no longer be cancelled")
	}

	after, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking after cancel: %w", err)
	}
	if after == nil {
		return nil, domain.NewNotFound("booking")
	}

	s.auditUpdate(ctx, id, bookingSnapshot(before), bookingSnapshot(after), userID)

	event := events.BookingCancelledEvent{
		BookingID:   after.ID,
		ShortRef:    after.ShortRef,
		GuestEmail:  after.GuestEmail,
		Reason:      "cancelled",
		CancelledAt: s.now(),
	}
	if err := s.eventBus.Publish(ctx, events.BookingCancelled, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking cancelled event", "error", err, "booking_id", after.ID)
	}

	return after, nil
}

// CheckInBooking moves a confirmed booking to checked in at the front
// desk.
func (s *bookingService) CheckInBooking(ctx context.Context, id int64, userID int64) (*domain.Booking, error) {
	before, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if before == nil {
		return nil, domain.NewNotFound("booking")
	}

	ok, err := s.bookingRepo.CheckIn(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check in booking: %w", err)
	}
	if !ok {
		return nil, domain.NewValidationError("only confirmed bookings can be checked in")
	}

	after, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking after check-in: %w", err)
	}
	if after == nil {
		return nil, domain.NewNotFound("booking")
	}

	s.auditUpdate(ctx, id, bookingSnapshot(before), bookingSnapshot(after), &userID)

	if err := s.eventBus.Publish(ctx, events.BookingCheckedIn, events.BookingCheckedInEvent{
		BookingID:   after.ID,
		ShortRef:    after.ShortRef,
		GuestEmail:  after.GuestEmail,
		CheckedInAt: s.now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish check-in event", "error", err, "booking_id", after.ID)
	}

	return after, nil
}

func (s *bookingService) resolveToken(ctx context.Context, rawToken string) (*domain.BookingAccessToken, error) {
	if rawToken == "" {
		return nil, domain.NewUnauthorized("booking token is required")
	}
	t, err := s.tokenRepo.FindByHash(ctx, domain.HashToken(rawToken))
	if err != nil {
		return nil, fmt.Errorf("failed to look up booking token: %w", err)
	}
	if t == nil || t.Expired(s.now()) {
		return nil, domain.NewUnauthorized("invalid or expired booking token")
	}
	return t, nil
}

func (s *bookingService) auditUpdate(ctx context.Context, bookingID int64, before, after map[string]any, userID *int64) {
	changedOld, changedNew := Diff(before, after)
	if err := s.audit.LogAction(ctx, &domain.AuditLogEntry{
		Action:     domain.AuditUpdate,
		EntityType: "booking",
		EntityID:   strconv.FormatInt(bookingID, 10),
		OldValues:  changedOld,
		NewValues:  changedNew,
		UserID:     userID,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to audit booking update", "error", err, "booking_id", bookingID)
	}
}

// bookingSnapshot is the audit view of a booking: enough to explain
// what happened without dumping guest PII beyond the contact address.
func bookingSnapshot(b *domain.Booking) map[string]any {
	return map[string]any{
		"short_ref":      b.ShortRef,
		"status":         string(b.Status),
		"payment_status": string(b.Payment),
		"guest_email":    b.GuestEmail,
		"total_amount":   b.TotalAmount,
		"amount_paid":    b.AmountPaid,
		"items":          len(b.Items),
	}
}
