package service

import (
	"context"
	"fmt"
	"reflect"

	"github.com/patwikx/twc-platform/internal/domain"
	"github.com/patwikx/twc-platform/internal/repository"
)

type AuditService interface {
	LogAction(ctx context.Context, entry *domain.AuditLogEntry) error
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error)
	EntityHistory(ctx context.Context, entityType, entityID string, limit int) ([]domain.AuditLogEntry, error)
	RecentByUser(ctx context.Context, userID int64, limit int) ([]domain.AuditLogEntry, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// LogAction validates and persists one audit entry. Writing the trail
// is best-effort by contract: callers log failures and move on rather
// than failing the business operation.
func (s *auditService) LogAction(ctx context.Context, entry *domain.AuditLogEntry) error {
	if err := entry.Validate(); err != nil {
		return domain.NewValidationError("%v", err)
	}
	if _, err := s.auditRepo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func (s *auditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	return s.auditRepo.List(ctx, filter)
}

func (s *auditService) EntityHistory(ctx context.Context, entityType, entityID string, limit int) ([]domain.AuditLogEntry, error) {
	return s.auditRepo.EntityHistory(ctx, entityType, entityID, limit)
}

func (s *auditService) RecentByUser(ctx context.Context, userID int64, limit int) ([]domain.AuditLogEntry, error) {
	return s.auditRepo.RecentByUser(ctx, userID, limit)
}

// Diff narrows two snapshots to the keys that actually changed, so
// update entries record deltas instead of whole records.
func Diff(oldVals, newVals map[string]any) (changedOld, changedNew map[string]any) {
	changedOld = make(map[string]any)
	changedNew = make(map[string]any)

	for key, oldV := range oldVals {
		newV, ok := newVals[key]
		if !ok {
			changedOld[key] = oldV
			continue
		}
		if !reflect.DeepEqual(oldV, newV) {
			changedOld[key] = oldV
			changedNew[key] = newV
		}
	}
	for key, newV := range newVals {
		if _, ok := oldVals[key]; !ok {
			changedNew[key] = newV
		}
	}
	return changedOld, changedNew
}
