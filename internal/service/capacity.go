package service

import (
	"context"
	"fmt"

	"github.com/patwikx/twc-platform/internal/domain"
	"github.com/patwikx/twc-platform/internal/repository"
)

type CapacityService interface {
	Validate(ctx context.Context, items []domain.CartItem) (map[int64]*domain.RoomType, []domain.CapacityViolation, error)
}

type capacityService struct {
	roomRepo repository.RoomRepository
}

func NewCapacityService(roomRepo repository.RoomRepository) CapacityService {
	return &capacityService{roomRepo: roomRepo}
}

// Validate loads the referenced room types and reports every item
// whose guest count exceeds the room's capacity. All violations come
// back together so the guest can fix the whole cart in one pass.
func (s *capacityService) Validate(ctx context.Context, items []domain.CartItem) (map[int64]*domain.RoomType, []domain.CapacityViolation, error) {
	if len(items) == 0 {
		return nil, nil, domain.NewValidationError("at least one room is required")
	}

	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, nil, domain.NewValidationError("%v", err)
		}
		if !seen[it.RoomTypeID] {
			seen[it.RoomTypeID] = true
			ids = append(ids, it.RoomTypeID)
		}
	}

	types, err := s.roomRepo.GetRoomTypes(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load room types: %w", err)
	}
	for _, id := range ids {
		if types[id] == nil {
			return nil, nil, domain.NewValidationError("room %d does not exist", id)
		}
	}

	var violations []domain.CapacityViolation
	for _, it := range items {
		rt := types[it.RoomTypeID]
		if it.Guests > rt.Capacity {
			violations = append(violations, domain.CapacityViolation{
				RoomTypeID: rt.ID,
				RoomName:   rt.Name,
				Capacity:   rt.Capacity,
				Requested:  it.Guests,
			})
		}
	}
	return types, violations, nil
}
