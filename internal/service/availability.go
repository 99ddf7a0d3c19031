package service

import (
	"context"
	"fmt"
	"time"

	"github.com/patwikx/twc-platform/internal/domain"
	"github.com/patwikx/twc-platform/internal/repository"
)

type AvailabilityService interface {
	Check(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (*domain.RoomAvailability, error)
	Calendar(ctx context.Context, roomTypeID int64, from time.Time, days int) ([]domain.DayAvailability, error)
	PreCheck(ctx context.Context, items []domain.BookingItem) ([]string, error)
}

type availabilityService struct {
	store    repository.AvailabilityStore
	roomRepo repository.RoomRepository
}

func NewAvailabilityService(store repository.AvailabilityStore, roomRepo repository.RoomRepository) AvailabilityService {
	return &availabilityService{store: store, roomRepo: roomRepo}
}

// Check reports how many units of a room type are free across the
// whole half-open stay range.
func (s *availabilityService) Check(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (*domain.RoomAvailability, error) {
	if !checkOut.After(checkIn) {
		return nil, domain.NewValidationError("check_out must be after check_in")
	}

	rt, err := s.roomRepo.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room type: %w", err)
	}
	if rt == nil {
		return nil, domain.NewNotFound("room")
	}

	total, err := s.store.CountActiveUnits(ctx, roomTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to count units: %w", err)
	}
	booked, err := s.store.CountOverlapping(ctx, roomTypeID, checkIn, checkOut)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}

	available := total - booked
	if available < 0 {
		available = 0
	}
	return &domain.RoomAvailability{
		RoomTypeID:     roomTypeID,
		RoomTypeName:   rt.Name,
		TotalUnits:     total,
		BookedUnits:    booked,
		AvailableUnits: available,
		Available:      available > 0,
		Limited:        limited(available),
	}, nil
}

// Calendar classifies each day in [from, from+days) for one room type.
// Occupied stays are fetched once and counted per day in memory.
func (s *availabilityService) Calendar(ctx context.Context, roomTypeID int64, from time.Time, days int) ([]domain.DayAvailability, error) {
	if days <= 0 {
		days = 30
	}
	if days > 92 {
		days = 92
	}
	from = domain.ToDate(from)
	to := from.AddDate(0, 0, days)

	rt, err := s.roomRepo.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room type: %w", err)
	}
	if rt == nil {
		return nil, domain.NewNotFound("room")
	}

	total, err := s.store.CountActiveUnits(ctx, roomTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to count units: %w", err)
	}
	stays, err := s.store.ListOverlapping(ctx, roomTypeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load stays: %w", err)
	}

	calendar := make([]domain.DayAvailability, 0, days)
	for d := 0; d < days; d++ {
		dayStart := from.AddDate(0, 0, d)
		dayEnd := dayStart.AddDate(0, 0, 1)

		booked := 0
		for _, stay := range stays {
			if domain.DatesOverlap(dayStart, dayEnd, stay.CheckIn, stay.CheckOut) {
				booked++
			}
		}

		available := total - booked
		if available < 0 {
			available = 0
		}
		calendar = append(calendar, domain.DayAvailability{
			Date:           dayStart,
			AvailableUnits: available,
			Status:         classifyDay(available, total),
		})
	}
	return calendar, nil
}

// PreCheck is the advisory availability pass before the serializable
// transaction: it reports the names of room types with no free unit
// for their requested stay. A clean pre-check is not a guarantee; the
// transaction re-checks under isolation.
func (s *availabilityService) PreCheck(ctx context.Context, items []domain.BookingItem) ([]string, error) {
	var unavailable []string
	for _, it := range items {
		total, err := s.store.CountActiveUnits(ctx, it.RoomTypeID)
		if err != nil {
			return nil, fmt.Errorf("failed to count units: %w", err)
		}
		booked, err := s.store.CountOverlapping(ctx, it.RoomTypeID, it.CheckIn, it.CheckOut)
		if err != nil {
			return nil, fmt.Errorf("failed to count bookings: %w", err)
		}
		if total-booked < 1 {
			unavailable = append(unavailable, it.RoomTypeName)
		}
	}
	return unavailable, nil
}

// limited is the guest-facing "only X rooms left" band for a stay
// range: the last two units. The calendar uses a proportional band
// instead; see classifyDay.
func limited(available int) bool {
	return available > 0 && available <= 2
}

func classifyDay(available, total int) domain.DayStatus {
	switch {
	case available <= 0:
		return domain.DayUnavailable
	case float64(available) < 0.5*float64(total):
		return domain.DayLimited
	default:
		return domain.DayAvailable
	}
}
