package domain

import (
	"fmt"
	"time"
)

type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

func ParseAuditAction(s string) (AuditAction, bool) {
	switch AuditAction(s) {
	case AuditCreate, AuditUpdate, AuditDelete:
		return AuditAction(s), true
	default:
		return "", false
	}
}

type AuditLogEntry struct {
	ID         int64          `json:"id"`
	Action     AuditAction    `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	OldValues  map[string]any `json:"old_values,omitempty"`
	NewValues  map[string]any `json:"new_values,omitempty"`
	UserID     *int64         `json:"user_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Validate enforces the shape each action must carry: creations record
// the new state, deletions the old, updates both.
func (e *AuditLogEntry) Validate() error {
	if e.EntityType == "" {
		return fmt.Errorf("entity_type is required")
	}
	if e.EntityID == "" {
		return fmt.Errorf("entity_id is required")
	}
	switch e.Action {
	case AuditCreate:
		if e.NewValues == nil {
			return fmt.Errorf("create entries require new_values")
		}
	case AuditUpdate:
		if e.OldValues == nil || e.NewValues == nil {
			return fmt.Errorf("update entries require old_values and new_values")
		}
	case AuditDelete:
		if e.OldValues == nil {
			return fmt.Errorf("delete entries require old_values")
		}
	default:
		return fmt.Errorf("unknown audit action %q", e.Action)
	}
	return nil
}

// AuditFilter narrows audit reads. Zero values mean "any".
type AuditFilter struct {
	EntityType string
	EntityID   string
	Action     AuditAction
	UserID     *int64
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
